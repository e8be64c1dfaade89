package models

// DocumentType is the TipoDeComprobante code.
type DocumentType string

const (
	TypeIncome   DocumentType = "I"
	TypeExpense  DocumentType = "E"
	TypePayment  DocumentType = "P"
	TypePayroll  DocumentType = "N"
	TypeTransfer DocumentType = "T"
)

// TaxKind is the SAT tax catalog code.
type TaxKind string

const (
	TaxISR  TaxKind = "001"
	TaxIVA  TaxKind = "002"
	TaxIEPS TaxKind = "003"
)

// FactorType is the TipoFactor attribute of a tax entry.
type FactorType string

const (
	FactorRate   FactorType = "Tasa"
	FactorQuota  FactorType = "Cuota"
	FactorExempt FactorType = "Exento"
)

// ObjetoImp codes.
const (
	ObjectNotTaxable = "01"
	ObjectTaxable    = "02"
)

// Relation type codes used by the document-type rules.
const (
	RelationCreditNote   = "01"
	RelationDebitNote    = "02"
	RelationSubstitution = "04"
)

// Placeholders used in report rows, matching the spreadsheet layout.
const (
	NotAvailable  = "NO DISPONIBLE"
	NotApplicable = "NO APLICA"
	Yes           = "SÍ"
	No            = "NO"
	NoSeries      = "SIN SERIE"
	NoFolio       = "SIN FOLIO"
	DefaultMXN    = "MXN"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
)
