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

type payAppFixture struct {
	store    *mockStore
	notifier *mockNotifier
	service  *PayAppService
	project  *model.Project
}

func newPayAppFixture(t *testing.T) *payAppFixture {
	t.Helper()
	store := newMockStore()
	notifier := &mockNotifier{}
	svc := NewPayAppService(
		store, store, store, store, store,
		NewAuditService(store),
		notifier,
		zerolog.Nop(),
	)
	return &payAppFixture{
		store:    store,
		notifier: notifier,
		service:  svc,
		project:  store.addProject("100000"),
	}
}

func (f *payAppFixture) addBudgetItem(t *testing.T, previous, current, materials, retainagePct string) {
	t.Helper()
	_, err := f.store.CreateBudgetItem(context.Background(), model.BudgetItem{
		ProjectID:             f.project.ID,
		Description:           "General Requirements",
		ScheduledValue:        mustDecimal("100000"),
		WorkCompletedPrevious: mustDecimal(previous),
		WorkCompletedCurrent:  mustDecimal(current),
		MaterialsStored:       mustDecimal(materials),
		RetainagePercent:      mustDecimal(retainagePct),
	})
	require.NoError(t, err)
}

func (f *payAppFixture) createApp(t *testing.T) *model.PayApplication {
	t.Helper()
	app, err := f.service.Create(context.Background(), CreatePayAppInput{
		ProjectID:  f.project.ID,
		PeriodFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodTo:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Principal:  model.Principal{Name: "Dana Reeve", Role: model.RoleContractor},
	})
	require.NoError(t, err)
	return app
}

func TestPayAppCreateDerivesSnapshot(t *testing.T) {
	f := newPayAppFixture(t)
	f.addBudgetItem(t, "20000", "15000", "0", "10")
	_, err := f.store.CreateChangeOrder(context.Background(), model.ChangeOrder{
		ProjectID: f.project.ID,
		Amount:    mustDecimal("5000"),
		Status:    model.ChangeOrderStatusApproved,
	})
	require.NoError(t, err)

	app := f.createApp(t)

	require.Equal(t, model.PayAppStatusDraft, app.Status)
	assert.Equal(t, 1, app.ApplicationNumber)
	assert.True(t, app.Snapshot.TotalCompleted.Equal(mustDecimal("35000")), "got %s", app.Snapshot.TotalCompleted)
	assert.True(t, app.Snapshot.RetainageAmount.Equal(mustDecimal("3500")), "got %s", app.Snapshot.RetainageAmount)
	assert.True(t, app.Snapshot.ContractToDate.Equal(mustDecimal("105000")), "got %s", app.Snapshot.ContractToDate)
	assert.True(t, app.Snapshot.CurrentPaymentDue.Equal(mustDecimal("31500")), "got %s", app.Snapshot.CurrentPaymentDue)

	assert.Contains(t, f.store.auditActions(), model.AuditPayAppCreated)
}

func TestPayAppCreateAssignsSequentialNumbers(t *testing.T) {
	f := newPayAppFixture(t)

	first := f.createApp(t)
	second := f.createApp(t)
	third := f.createApp(t)

	assert.Equal(t, 1, first.ApplicationNumber)
	assert.Equal(t, 2, second.ApplicationNumber)
	assert.Equal(t, 3, third.ApplicationNumber)
}

func TestPayAppCreateValidation(t *testing.T) {
	f := newPayAppFixture(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	_, err := f.service.Create(context.Background(), CreatePayAppInput{PeriodFrom: from, PeriodTo: to})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.Create(context.Background(), CreatePayAppInput{ProjectID: f.project.ID, PeriodFrom: to, PeriodTo: from})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.Create(context.Background(), CreatePayAppInput{ProjectID: uuid.New(), PeriodFrom: from, PeriodTo: to})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPayAppPreviousCertificatesAccumulate(t *testing.T) {
	f := newPayAppFixture(t)
	f.addBudgetItem(t, "20000", "15000", "0", "10")

	// Earlier applications: one approved for 10000, one paid for 5000.
	for _, prior := range []struct {
		status model.PayAppStatus
		due    string
	}{
		{model.PayAppStatusApproved, "10000"},
		{model.PayAppStatusPaid, "5000"},
	} {
		_, err := f.store.CreatePayApplication(context.Background(), model.PayApplication{
			ProjectID: f.project.ID,
			Status:    prior.status,
			Snapshot:  model.Snapshot{CurrentPaymentDue: mustDecimal(prior.due)},
		})
		require.NoError(t, err)
	}

	app := f.createApp(t)

	assert.True(t, app.Snapshot.LessPreviousCertificates.Equal(mustDecimal("15000")), "got %s", app.Snapshot.LessPreviousCertificates)
	// 31500 earned less 15000 already certified.
	assert.True(t, app.Snapshot.CurrentPaymentDue.Equal(mustDecimal("16500")), "got %s", app.Snapshot.CurrentPaymentDue)
}

func TestPayAppRejectedExcludedFromPreviousCertificates(t *testing.T) {
	f := newPayAppFixture(t)
	f.addBudgetItem(t, "20000", "15000", "0", "10")

	_, err := f.store.CreatePayApplication(context.Background(), model.PayApplication{
		ProjectID: f.project.ID,
		Status:    model.PayAppStatusRejected,
		Snapshot:  model.Snapshot{CurrentPaymentDue: mustDecimal("10000")},
	})
	require.NoError(t, err)

	app := f.createApp(t)

	assert.True(t, app.Snapshot.LessPreviousCertificates.IsZero())
	assert.True(t, app.Snapshot.CurrentPaymentDue.Equal(mustDecimal("31500")), "got %s", app.Snapshot.CurrentPaymentDue)
}

func TestPayAppTransitionMatrix(t *testing.T) {
	cases := []struct {
		name    string
		path    []model.PayAppStatus
		target  model.PayAppStatus
		allowed bool
	}{
		{"draft to submitted", nil, model.PayAppStatusSubmitted, true},
		{"draft to approved", nil, model.PayAppStatusApproved, false},
		{"draft to paid", nil, model.PayAppStatusPaid, false},
		{"submitted to approved", []model.PayAppStatus{model.PayAppStatusSubmitted}, model.PayAppStatusApproved, true},
		{"submitted to rejected", []model.PayAppStatus{model.PayAppStatusSubmitted}, model.PayAppStatusRejected, true},
		{"submitted to paid", []model.PayAppStatus{model.PayAppStatusSubmitted}, model.PayAppStatusPaid, false},
		{"approved to paid", []model.PayAppStatus{model.PayAppStatusSubmitted, model.PayAppStatusApproved}, model.PayAppStatusPaid, true},
		{"approved to rejected", []model.PayAppStatus{model.PayAppStatusSubmitted, model.PayAppStatusApproved}, model.PayAppStatusRejected, false},
		{"rejected is terminal", []model.PayAppStatus{model.PayAppStatusSubmitted, model.PayAppStatusRejected}, model.PayAppStatusSubmitted, false},
		{"paid is terminal", []model.PayAppStatus{model.PayAppStatusSubmitted, model.PayAppStatusApproved, model.PayAppStatusPaid}, model.PayAppStatusSubmitted, false},
	}

	principal := model.Principal{Name: "Dana Reeve"}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPayAppFixture(t)
			app := f.createApp(t)
			for _, step := range tc.path {
				_, err := f.service.Transition(context.Background(), app.ID, step, principal)
				require.NoError(t, err)
			}

			_, err := f.service.Transition(context.Background(), app.ID, tc.target, principal)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestPayAppTransitionSetsTimestampsAndNotifies(t *testing.T) {
	f := newPayAppFixture(t)
	app := f.createApp(t)
	principal := model.Principal{Name: "Dana Reeve"}

	app, err := f.service.Transition(context.Background(), app.ID, model.PayAppStatusSubmitted, principal)
	require.NoError(t, err)
	require.NotNil(t, app.SubmittedAt)

	app, err = f.service.Transition(context.Background(), app.ID, model.PayAppStatusApproved, principal)
	require.NoError(t, err)
	require.NotNil(t, app.ApprovedAt)

	assert.Len(t, f.notifier.byType(NotifyPayAppSubmitted), 1)
	assert.Len(t, f.notifier.byType(NotifyPayAppApproved), 1)
	assert.Contains(t, f.store.auditActions(), model.AuditPayAppSubmitted)
	assert.Contains(t, f.store.auditActions(), model.AuditPayAppApproved)
}

func TestPayAppTransitionSurvivesNotifierFailure(t *testing.T) {
	f := newPayAppFixture(t)
	f.notifier.err = errors.New("webhook down")
	app := f.createApp(t)

	app, err := f.service.Transition(context.Background(), app.ID, model.PayAppStatusSubmitted, model.Principal{Name: "Dana Reeve"})
	require.NoError(t, err)
	assert.Equal(t, model.PayAppStatusSubmitted, app.Status)
}

func TestPayAppRecalculatePicksUpLedgerChanges(t *testing.T) {
	f := newPayAppFixture(t)
	f.addBudgetItem(t, "20000", "15000", "0", "10")
	app := f.createApp(t)
	principal := model.Principal{Name: "Dana Reeve"}

	// No changes: recalculation leaves the snapshot identical.
	unchanged, err := f.service.Recalculate(context.Background(), app.ID, principal)
	require.NoError(t, err)
	assert.Equal(t, app.Snapshot, unchanged.Snapshot)

	f.addBudgetItem(t, "0", "10000", "0", "10")
	recalced, err := f.service.Recalculate(context.Background(), app.ID, principal)
	require.NoError(t, err)
	assert.True(t, recalced.Snapshot.TotalCompleted.Equal(mustDecimal("45000")), "got %s", recalced.Snapshot.TotalCompleted)
	assert.True(t, recalced.Snapshot.RetainageAmount.Equal(mustDecimal("4500")), "got %s", recalced.Snapshot.RetainageAmount)
}

func TestPayAppRecalculateDraftOnly(t *testing.T) {
	f := newPayAppFixture(t)
	app := f.createApp(t)
	principal := model.Principal{Name: "Dana Reeve"}

	_, err := f.service.Transition(context.Background(), app.ID, model.PayAppStatusSubmitted, principal)
	require.NoError(t, err)

	_, err = f.service.Recalculate(context.Background(), app.ID, principal)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPayAppUpdateMetadataDraftOnly(t *testing.T) {
	f := newPayAppFixture(t)
	app := f.createApp(t)
	principal := model.Principal{Name: "Dana Reeve"}
	input := UpdateMetadataInput{
		PeriodFrom: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		PeriodTo:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Notes:      "resubmission for April",
		Principal:  principal,
	}

	updated, err := f.service.UpdateMetadata(context.Background(), app.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "resubmission for April", updated.Notes)

	_, err = f.service.Transition(context.Background(), app.ID, model.PayAppStatusSubmitted, principal)
	require.NoError(t, err)

	_, err = f.service.UpdateMetadata(context.Background(), app.ID, input)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPayAppDocumentAssembly(t *testing.T) {
	f := newPayAppFixture(t)
	f.addBudgetItem(t, "20000", "15000", "0", "10")
	app := f.createApp(t)

	_, err := f.store.UpsertRecord(context.Background(), model.SignatureRecord{
		DocumentType: model.DocumentTypePayApplication,
		DocumentID:   app.ID,
		Type:         model.SignatureTypeContractor,
		SignerName:   "Dana Reeve",
	})
	require.NoError(t, err)

	doc, err := f.service.Document(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, f.project.ID, doc.Project.ID)
	assert.Equal(t, app.ID, doc.Application.ID)
	assert.Len(t, doc.Items, 1)
	assert.Len(t, doc.Signatures, 1)
}

func TestPayAppGetUnknown(t *testing.T) {
	f := newPayAppFixture(t)

	_, err := f.service.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.List(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
