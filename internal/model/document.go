package model

// PayAppDocument bundles everything the G702/G703 exporters need. Export is
// a pure function of this data; nothing is recalculated at export time.
type PayAppDocument struct {
	Project     Project
	Application PayApplication
	Items       []BudgetItem
	Signatures  []SignatureRecord
}
