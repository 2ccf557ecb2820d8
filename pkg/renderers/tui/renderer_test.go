package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/derived"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	inputConfigs []InputConfig
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.inputConfigs = append(s.inputConfigs, cfg)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type abortingDriver struct {
	stubDriver
}

func (a *abortingDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}

func num(v float64) *float64 { return &v }

func applicationForm() model.Form {
	return model.Form{
		ID:   "application",
		Name: "Application",
		Fields: []model.FormField{
			{ID: "name", Type: model.FieldTypeText, Label: "Name", Order: 0,
				ValidationRules: []model.ValidationRule{{Type: model.RuleRequired}}},
			{ID: "secret", Type: model.FieldTypeText, Label: "Secret", Order: 1,
				ValidationRules: []model.ValidationRule{{Type: model.RulePassword}}},
			{ID: "dob", Type: model.FieldTypeDate, Label: "Date of Birth", Order: 2},
			{ID: "age", Type: model.FieldTypeNumber, Label: "Age", Order: 3, IsDerived: true,
				DerivedConfig: &model.DerivedFieldConfig{ParentFieldID: "dob", Calculation: model.CalculationAge}},
			{ID: "years", Type: model.FieldTypeNumber, Label: "Years", Order: 4,
				ValidationRules: []model.ValidationRule{{Type: model.RuleMin, Value: num(0)}}},
			{ID: "team", Type: model.FieldTypeSelect, Label: "Team", Order: 5, Options: []string{"Core", "Infra"}},
			{ID: "langs", Type: model.FieldTypeCheckbox, Label: "Languages", Order: 6, Options: []string{"Go", "Rust"}},
			{ID: "terms", Type: model.FieldTypeCheckbox, Label: "Accept terms", Order: 7},
			{ID: "bio", Type: model.FieldTypeTextarea, Label: "Bio", Order: 8},
		},
	}
}

func testController() *session.Controller {
	clock := testsupport.NewClockAt(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	return session.New(
		session.WithClock(clock.Now),
		session.WithEngine(derived.New(derived.WithClock(clock.Now))),
		session.WithSubmitter(session.SimulatedSubmitter{}),
	)
}

func TestPreviewPromptsByTypeAndReasks(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "Ada", "not a date", "2000-06-15", "abc", "-1", "3"},
		passwords: []string{"short1", "longpass1"},
		selectIdx: []int{1},
		multiIdx:  [][]int{{0}},
		confirm:   []bool{true, true},
		textAreas: []string{"hi"},
	}
	r := New(WithPromptDriver(driver))
	ctrl := testController()

	out, err := r.Preview(context.Background(), applicationForm(), ctrl)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := map[string]any{
		"name":   "Ada",
		"secret": "longpass1",
		"dob":    "2000-06-15",
		"age":    float64(24),
		"years":  float64(3),
		"team":   "Infra",
		"langs":  []any{"Go"},
		"terms":  true,
		"bio":    "hi",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	wantInfo := []string{
		"Name is required",
		"Secret must be at least 8 characters",
		"Date of Birth must be a date (YYYY-MM-DD)",
		"Age = 24",
		"Years must be a number",
		"Years must be at least 0",
		"Form submitted successfully!",
	}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	if snap := ctrl.Snapshot(); snap.State != session.Submitted || !snap.SubmitSuccess {
		t.Fatalf("session should be submitted: %+v", snap)
	}
}

func TestPreviewPassesInputValidators(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"Ada", "2000-06-15", "3"},
		confirm: []bool{false},
	}
	form := model.Form{
		ID:   "typed",
		Name: "Typed",
		Fields: []model.FormField{
			{ID: "name", Type: model.FieldTypeText, Label: "Name", Placeholder: "Your name", Order: 0},
			{ID: "dob", Type: model.FieldTypeDate, Label: "Date of Birth", Order: 1},
			{ID: "years", Type: model.FieldTypeNumber, Label: "Years", Order: 2},
		},
	}
	if _, err := New(WithPromptDriver(driver)).Preview(context.Background(), form, testController()); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(driver.inputConfigs) != 3 {
		t.Fatalf("expected 3 input prompts, got %d", len(driver.inputConfigs))
	}

	name, dob, years := driver.inputConfigs[0], driver.inputConfigs[1], driver.inputConfigs[2]
	if name.Validator != nil || name.Help != "Your name" {
		t.Fatalf("text prompt should carry the placeholder as help and no validator: %+v", name)
	}
	if dob.Help != dateHelp {
		t.Fatalf("date help = %q", dob.Help)
	}

	checks := []struct {
		name string
		fn   func(string) error
		in   string
		want string
	}{
		{"date blank", dob.Validator, "  ", ""},
		{"date ok", dob.Validator, "2000-06-15", ""},
		{"date bad", dob.Validator, "June", "Date of Birth must be a date (YYYY-MM-DD)"},
		{"number blank", years.Validator, "", ""},
		{"number ok", years.Validator, " 4.5 ", ""},
		{"number bad", years.Validator, "four", "Years must be a number"},
	}
	for _, tt := range checks {
		if tt.fn == nil {
			t.Fatalf("%s: validator not set", tt.name)
		}
		got := ""
		if err := tt.fn(tt.in); err != nil {
			got = err.Error()
		}
		if got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStringValidatorAdaptsAnswers(t *testing.T) {
	var seen []string
	v := stringValidator(func(s string) error {
		seen = append(seen, s)
		if s == "no" {
			return errors.New("rejected")
		}
		return nil
	})
	if err := v("yes"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v("no"); err == nil {
		t.Fatalf("expected rejection")
	}
	if err := v(42); err != nil {
		t.Fatalf("non-string answers read as blank: %v", err)
	}
	if diff := cmp.Diff([]string{"yes", "no", ""}, seen); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviewDeclinedSubmitPrettyOutput(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"Ada", ""},
		confirm: []bool{false},
	}
	r := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText), WithTheme(Theme{ErrorPrefix: "! "}))
	if r.ContentType() != "text/plain" {
		t.Fatalf("content type = %q", r.ContentType())
	}
	form := model.Form{
		ID:   "short",
		Name: "Short",
		Fields: []model.FormField{
			{ID: "name", Type: model.FieldTypeText, Label: "Name", Order: 0},
			{ID: "dob", Type: model.FieldTypeDate, Label: "Date of Birth", Order: 1},
			{ID: "age", Type: model.FieldTypeNumber, Label: "Age", Order: 2, IsDerived: true,
				DerivedConfig: &model.DerivedFieldConfig{ParentFieldID: "dob", Calculation: model.CalculationAge}},
		},
	}
	ctrl := testController()

	out, err := r.Preview(context.Background(), form, ctrl)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	want := "Name: Ada\nDate of Birth: \nAge: \n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infoMessages) != 0 {
		t.Fatalf("unexpected messages: %v", driver.infoMessages)
	}
	if snap := ctrl.Snapshot(); snap.State != session.Editing {
		t.Fatalf("declined submit should leave the session editing, got %v", snap.State)
	}
}

func TestPreviewRefusesSubmitWithUnfixableErrors(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{""},
		confirm: []bool{true},
	}
	r := New(WithPromptDriver(driver))
	form := model.Form{
		ID:   "stuck",
		Name: "Stuck",
		Fields: []model.FormField{
			{ID: "dob", Type: model.FieldTypeDate, Label: "Date of Birth", Order: 0},
			{ID: "age", Type: model.FieldTypeNumber, Label: "Age", Order: 1, IsDerived: true,
				ValidationRules: []model.ValidationRule{{Type: model.RuleRequired}},
				DerivedConfig:   &model.DerivedFieldConfig{ParentFieldID: "dob", Calculation: model.CalculationAge}},
		},
	}

	_, err := r.Preview(context.Background(), form, testController())
	if !errors.Is(err, ErrNotSubmitted) {
		t.Fatalf("expected ErrNotSubmitted, got %v", err)
	}
	if !strings.Contains(err.Error(), "Age is required") {
		t.Fatalf("error should name the failing field: %v", err)
	}
}

func TestPreviewAborts(t *testing.T) {
	r := New(WithPromptDriver(&abortingDriver{}))
	form := model.Form{
		ID:     "f",
		Name:   "F",
		Fields: []model.FormField{{ID: "name", Type: model.FieldTypeText, Label: "Name"}},
	}
	if _, err := r.Preview(context.Background(), form, testController()); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestPreviewHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(WithPromptDriver(&stubDriver{}))
	if _, err := r.Preview(ctx, model.Form{ID: "f", Name: "F"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for name, want := range map[string]bool{"json": true, "pretty": true, "form": false, "": false} {
		if _, ok := ParseOutputFormat(name); ok != want {
			t.Fatalf("ParseOutputFormat(%q) ok = %v, want %v", name, ok, want)
		}
	}
}
