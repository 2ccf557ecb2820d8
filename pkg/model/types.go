package model

// FieldType is the closed set of input primitives a form can hold.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeDate     FieldType = "date"
)

// FieldTypes lists every supported field type in builder palette order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeNumber,
		FieldTypeTextarea,
		FieldTypeSelect,
		FieldTypeRadio,
		FieldTypeCheckbox,
		FieldTypeDate,
	}
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeTextarea, FieldTypeSelect,
		FieldTypeRadio, FieldTypeCheckbox, FieldTypeDate:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the type draws its values from Options.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// RuleType identifies a validation rule.
type RuleType string

const (
	RuleRequired  RuleType = "required"
	RuleMinLength RuleType = "minLength"
	RuleMaxLength RuleType = "maxLength"
	RuleEmail     RuleType = "email"
	RulePassword  RuleType = "password"
	RuleMin       RuleType = "min"
	RuleMax       RuleType = "max"
	RuleCustom    RuleType = "custom"
)

// RuleTypes lists every supported rule type.
func RuleTypes() []RuleType {
	return []RuleType{
		RuleRequired,
		RuleMinLength,
		RuleMaxLength,
		RuleEmail,
		RulePassword,
		RuleMin,
		RuleMax,
		RuleCustom,
	}
}

// Valid reports whether r is one of the supported rule types.
func (r RuleType) Valid() bool {
	switch r {
	case RuleRequired, RuleMinLength, RuleMaxLength, RuleEmail, RulePassword,
		RuleMin, RuleMax, RuleCustom:
		return true
	default:
		return false
	}
}

// Calculation selects the strategy used to compute a derived field.
type Calculation string

const (
	CalculationAge        Calculation = "age"
	CalculationSum        Calculation = "sum"
	CalculationDifference Calculation = "difference"
	CalculationCustom     Calculation = "custom"
)

// Calculations lists every supported calculation strategy.
func Calculations() []Calculation {
	return []Calculation{
		CalculationAge,
		CalculationSum,
		CalculationDifference,
		CalculationCustom,
	}
}

// Valid reports whether c is one of the supported calculations.
func (c Calculation) Valid() bool {
	switch c {
	case CalculationAge, CalculationSum, CalculationDifference, CalculationCustom:
		return true
	default:
		return false
	}
}

// ValidationRule is a declarative constraint attached to a field. Value holds
// the numeric threshold for length and range rules; a nil threshold is read as
// zero. Message overrides the engine default when non-empty.
type ValidationRule struct {
	Type    RuleType `json:"type" yaml:"type"`
	Value   *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Message string   `json:"message" yaml:"message"`
}

// Threshold returns the rule's numeric parameter, defaulting to zero.
func (r ValidationRule) Threshold() float64 {
	if r.Value == nil {
		return 0
	}
	return *r.Value
}

// DerivedFieldConfig describes how a derived field is computed from the live
// values of the rest of the form.
type DerivedFieldConfig struct {
	ParentFieldID string      `json:"parentFieldId" yaml:"parentFieldId"`
	Formula       string      `json:"formula" yaml:"formula"`
	Calculation   Calculation `json:"calculation" yaml:"calculation"`
}

// FormField is a single input inside a Form.
type FormField struct {
	ID              string              `json:"id" yaml:"id"`
	Type            FieldType           `json:"type" yaml:"type"`
	Label           string              `json:"label" yaml:"label"`
	Required        bool                `json:"required" yaml:"required"`
	DefaultValue    any                 `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	ValidationRules []ValidationRule    `json:"validationRules" yaml:"validationRules"`
	IsDerived       bool                `json:"isDerived" yaml:"isDerived"`
	DerivedConfig   *DerivedFieldConfig `json:"derivedConfig,omitempty" yaml:"derivedConfig,omitempty"`
	Order           int                 `json:"order" yaml:"order"`
	Options         []string            `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder     string              `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// HasRule reports whether the field declares a rule of the given type.
func (f FormField) HasRule(rule RuleType) bool {
	for _, r := range f.ValidationRules {
		if r.Type == rule {
			return true
		}
	}
	return false
}

// Form is a named, ordered collection of fields. Timestamps are ISO-8601
// strings as produced by Timestamp.
type Form struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   string      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   string      `json:"updatedAt" yaml:"updatedAt"`
	Fields      []FormField `json:"fields" yaml:"fields"`
}

// Field returns the field with the supplied id.
func (f Form) Field(id string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FormField{}, false
}

// FieldByLabel returns the first field carrying label.
func (f Form) FieldByLabel(label string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.Label == label {
			return field, true
		}
	}
	return FormField{}, false
}
