package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtrack/billing-service/internal/model"
)

type signatureFixture struct {
	store       *mockStore
	notifier    *mockNotifier
	service     *SignatureService
	project     *model.Project
	payApp      *model.PayApplication
	changeOrder *model.ChangeOrder
	clock       time.Time
}

func newSignatureFixture(t *testing.T) *signatureFixture {
	t.Helper()
	store := newMockStore()
	notifier := &mockNotifier{}
	svc := NewSignatureService(
		store, store, store,
		NewAuditService(store),
		notifier,
		"https://billing.crewtrack.dev",
		14*24*time.Hour,
		zerolog.Nop(),
	)

	f := &signatureFixture{
		store:    store,
		notifier: notifier,
		service:  svc,
		project:  store.addProject("100000"),
		clock:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return f.clock }

	app, err := store.CreatePayApplication(context.Background(), model.PayApplication{
		ProjectID: f.project.ID,
		Status:    model.PayAppStatusSubmitted,
	})
	require.NoError(t, err)
	f.payApp = app

	order, err := store.CreateChangeOrder(context.Background(), model.ChangeOrder{
		ProjectID:   f.project.ID,
		Description: "Added storm drainage",
		Amount:      mustDecimal("5000"),
		Status:      model.ChangeOrderStatusPending,
	})
	require.NoError(t, err)
	f.changeOrder = order

	return f
}

func (f *signatureFixture) sign(t *testing.T, docType model.DocumentType, docID uuid.UUID, sigType model.SignatureType, name string) *model.SignatureRecord {
	t.Helper()
	record, err := f.service.SaveSignature(context.Background(), docType, docID, SaveSignatureInput{
		Type:       sigType,
		SignerName: name,
		Principal:  model.Principal{Name: name},
	})
	require.NoError(t, err)
	return record
}

func TestSaveSignatureRequiresSignerName(t *testing.T) {
	f := newSignatureFixture(t)

	_, err := f.service.SaveSignature(context.Background(), model.DocumentTypePayApplication, f.payApp.ID, SaveSignatureInput{
		Type:       model.SignatureTypeContractor,
		SignerName: "   ",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveSignatureUnknownDocument(t *testing.T) {
	f := newSignatureFixture(t)

	_, err := f.service.SaveSignature(context.Background(), model.DocumentTypePayApplication, uuid.New(), SaveSignatureInput{
		Type:       model.SignatureTypeContractor,
		SignerName: "Dana Reeve",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPayAppFullySignedNotifiedOnce(t *testing.T) {
	f := newSignatureFixture(t)
	docID := f.payApp.ID

	f.sign(t, model.DocumentTypePayApplication, docID, model.SignatureTypeContractor, "Dana Reeve")
	assert.Empty(t, f.notifier.byType(NotifyPayAppFullySigned))

	complete, err := f.service.IsComplete(context.Background(), model.DocumentTypePayApplication, docID)
	require.NoError(t, err)
	assert.False(t, complete)

	architect := f.sign(t, model.DocumentTypePayApplication, docID, model.SignatureTypeArchitect, "Miriam Osei")
	assert.Len(t, f.notifier.byType(NotifyPayAppFullySigned), 1)

	complete, err = f.service.IsComplete(context.Background(), model.DocumentTypePayApplication, docID)
	require.NoError(t, err)
	assert.True(t, complete)

	// Remove and re-add a signature: the document becomes complete again but
	// the notification must not repeat.
	require.NoError(t, f.service.DeleteSignature(context.Background(), architect.ID, model.Principal{Name: "Miriam Osei"}))
	f.sign(t, model.DocumentTypePayApplication, docID, model.SignatureTypeArchitect, "Miriam Osei")
	assert.Len(t, f.notifier.byType(NotifyPayAppFullySigned), 1)

	fullySigned := 0
	for _, action := range f.store.auditActions() {
		if action == model.AuditFullySigned {
			fullySigned++
		}
	}
	assert.Equal(t, 1, fullySigned)
}

func TestChangeOrderRequiresThreeSignatures(t *testing.T) {
	f := newSignatureFixture(t)
	docID := f.changeOrder.ID

	f.sign(t, model.DocumentTypeChangeOrder, docID, model.SignatureTypeContractor, "Dana Reeve")
	f.sign(t, model.DocumentTypeChangeOrder, docID, model.SignatureTypeArchitect, "Miriam Osei")

	complete, err := f.service.IsComplete(context.Background(), model.DocumentTypeChangeOrder, docID)
	require.NoError(t, err)
	assert.False(t, complete)

	f.sign(t, model.DocumentTypeChangeOrder, docID, model.SignatureTypeOwner, "Victor Hahn")

	complete, err = f.service.IsComplete(context.Background(), model.DocumentTypeChangeOrder, docID)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestSaveSignatureReplacesExisting(t *testing.T) {
	f := newSignatureFixture(t)
	docID := f.payApp.ID

	first := f.sign(t, model.DocumentTypePayApplication, docID, model.SignatureTypeContractor, "Dana Reeve")
	second := f.sign(t, model.DocumentTypePayApplication, docID, model.SignatureTypeContractor, "D. Reeve Jr.")

	assert.Equal(t, first.ID, second.ID)

	records, err := f.service.ListSignatures(context.Background(), model.DocumentTypePayApplication, docID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "D. Reeve Jr.", records[0].SignerName)
}

func requestSignature(t *testing.T, f *signatureFixture, expiresIn time.Duration) *SignatureRequestResult {
	t.Helper()
	result, err := f.service.RequestSignature(context.Background(), RequestSignatureInput{
		DocumentType:   model.DocumentTypePayApplication,
		DocumentID:     f.payApp.ID,
		Type:           model.SignatureTypeArchitect,
		RecipientEmail: "m.osei@studioarch.example",
		RecipientName:  "Miriam Osei",
		ExpiresIn:      expiresIn,
		Principal:      model.Principal{Name: "Dana Reeve"},
	})
	require.NoError(t, err)
	return result
}

func TestRequestSignatureIssuesTokenAndNotifies(t *testing.T) {
	f := newSignatureFixture(t)

	result := requestSignature(t, f, 0)

	assert.NotEmpty(t, result.Request.Token)
	assert.Equal(t, "https://billing.crewtrack.dev/sign/"+result.Request.Token, result.SigningURL)
	assert.Equal(t, f.clock.Add(14*24*time.Hour), result.Request.ExpiresAt)

	intents := f.notifier.byType(NotifySignatureRequested)
	require.Len(t, intents, 1)
	assert.Equal(t, "m.osei@studioarch.example", intents[0].Recipient)
	assert.Contains(t, f.store.auditActions(), model.AuditRequestCreated)
}

func TestRequestSignatureValidation(t *testing.T) {
	f := newSignatureFixture(t)

	_, err := f.service.RequestSignature(context.Background(), RequestSignatureInput{
		DocumentType: model.DocumentTypePayApplication,
		DocumentID:   f.payApp.ID,
		Type:         model.SignatureTypeArchitect,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRequestExpiryIsEvaluatedLazily(t *testing.T) {
	f := newSignatureFixture(t)
	result := requestSignature(t, f, time.Hour)
	principal := model.Principal{Name: "Dana Reeve"}

	require.NoError(t, f.service.SendReminder(context.Background(), result.Request.ID, principal))

	f.clock = f.clock.Add(2 * time.Hour)

	assert.ErrorIs(t, f.service.SendReminder(context.Background(), result.Request.ID, principal), ErrExpiredRequest)
	assert.ErrorIs(t, f.service.Resend(context.Background(), result.Request.ID, principal), ErrExpiredRequest)

	_, err := f.service.CompleteByToken(context.Background(), result.Request.Token, CompleteByTokenInput{SignerName: "Miriam Osei"})
	assert.ErrorIs(t, err, ErrExpiredRequest)

	// Expired requests may still be cancelled for housekeeping.
	assert.NoError(t, f.service.Cancel(context.Background(), result.Request.ID, principal))
}

func TestReminderAuditWrittenEvenWhenDispatchFails(t *testing.T) {
	f := newSignatureFixture(t)
	result := requestSignature(t, f, time.Hour)
	f.notifier.err = errors.New("smtp relay down")

	err := f.service.SendReminder(context.Background(), result.Request.ID, model.Principal{Name: "Dana Reeve"})
	require.NoError(t, err)
	assert.Contains(t, f.store.auditActions(), model.AuditReminderSent)
}

func TestResendKeepsTokenAndExpiry(t *testing.T) {
	f := newSignatureFixture(t)
	result := requestSignature(t, f, time.Hour)

	require.NoError(t, f.service.Resend(context.Background(), result.Request.ID, model.Principal{Name: "Dana Reeve"}))

	request, err := f.store.GetRequest(context.Background(), result.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Request.Token, request.Token)
	assert.Equal(t, result.Request.ExpiresAt, request.ExpiresAt)
	assert.Len(t, f.notifier.byType(NotifySignatureRequested), 2)
}

func TestCancelRules(t *testing.T) {
	f := newSignatureFixture(t)
	principal := model.Principal{Name: "Dana Reeve"}

	pending := requestSignature(t, f, time.Hour)
	require.NoError(t, f.service.Cancel(context.Background(), pending.Request.ID, principal))
	// Cancelling twice is a no-op.
	assert.NoError(t, f.service.Cancel(context.Background(), pending.Request.ID, principal))

	completed := requestSignature(t, f, time.Hour)
	_, err := f.service.CompleteByToken(context.Background(), completed.Request.Token, CompleteByTokenInput{SignerName: "Miriam Osei"})
	require.NoError(t, err)
	assert.ErrorIs(t, f.service.Cancel(context.Background(), completed.Request.ID, principal), ErrInvalidTransition)
}

func TestCompleteByToken(t *testing.T) {
	f := newSignatureFixture(t)
	result := requestSignature(t, f, time.Hour)

	record, err := f.service.CompleteByToken(context.Background(), result.Request.Token, CompleteByTokenInput{
		SignerName:  "Miriam Osei",
		SignerTitle: "Principal Architect",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SignatureTypeArchitect, record.Type)
	assert.Equal(t, f.payApp.ID, record.DocumentID)

	request, err := f.store.GetRequest(context.Background(), result.Request.ID)
	require.NoError(t, err)
	require.NotNil(t, request.CompletedAt)
	assert.Contains(t, f.store.auditActions(), model.AuditRequestCompleted)

	_, err = f.service.CompleteByToken(context.Background(), result.Request.Token, CompleteByTokenInput{SignerName: "Miriam Osei"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteByTokenCancelledRequest(t *testing.T) {
	f := newSignatureFixture(t)
	result := requestSignature(t, f, time.Hour)

	require.NoError(t, f.service.Cancel(context.Background(), result.Request.ID, model.Principal{Name: "Dana Reeve"}))

	_, err := f.service.CompleteByToken(context.Background(), result.Request.Token, CompleteByTokenInput{SignerName: "Miriam Osei"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteByTokenTriggersCompleteness(t *testing.T) {
	f := newSignatureFixture(t)
	f.sign(t, model.DocumentTypePayApplication, f.payApp.ID, model.SignatureTypeContractor, "Dana Reeve")
	result := requestSignature(t, f, time.Hour)

	_, err := f.service.CompleteByToken(context.Background(), result.Request.Token, CompleteByTokenInput{SignerName: "Miriam Osei"})
	require.NoError(t, err)

	assert.Len(t, f.notifier.byType(NotifyPayAppFullySigned), 1)
}

func TestSendBulkReminders(t *testing.T) {
	f := newSignatureFixture(t)
	principal := model.Principal{Name: "Dana Reeve"}

	first := requestSignature(t, f, time.Hour)
	second := requestSignature(t, f, time.Hour)

	result, err := f.service.SendBulkReminders(context.Background(), []uuid.UUID{
		first.Request.ID,
		second.Request.ID,
		uuid.New(),
	}, principal)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)

	_, err = f.service.SendBulkReminders(context.Background(), nil, principal)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetRequestByToken(t *testing.T) {
	f := newSignatureFixture(t)
	result := requestSignature(t, f, time.Hour)

	request, status, err := f.service.GetRequestByToken(context.Background(), result.Request.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Request.ID, request.ID)
	assert.Equal(t, model.SignatureRequestPending, status)

	f.clock = f.clock.Add(2 * time.Hour)
	_, status, err = f.service.GetRequestByToken(context.Background(), result.Request.Token)
	require.NoError(t, err)
	assert.Equal(t, model.SignatureRequestExpired, status)

	_, _, err = f.service.GetRequestByToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}
