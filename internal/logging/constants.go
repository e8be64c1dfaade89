package logging

// Standardized field names for structured logging.
const (
	FieldFile       = "file_path"
	FieldUUID       = "uuid"
	FieldRFC        = "rfc"
	FieldVersion    = "cfdi_version"
	FieldDocType    = "cfdi_type"
	FieldVerdict    = "verdict"
	FieldCode       = "code"
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldBatch      = "batch"
	FieldOperation  = "operation"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldInputFile  = "input_file"
	FieldOutputFile = "output_file"
)
