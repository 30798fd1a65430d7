package tools

import (
	"context"
	"strings"
	"testing"
)

func TestValidateExternalName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"weather_lookup", false},
		{"browser_navigate", false},
		{"github__create_issue", false},
		{"respond", true},          // reserved
		{"generate_image", true},   // reserved
		{"Weather", true},          // upper case
		{"9lives", true},           // leading digit
		{"", true},                 // empty
		{"has-dash", true},         // invalid char
		{strings.Repeat("a", 65), true}, // too long
		{strings.Repeat("a", 64), false},
	}
	for _, tc := range cases {
		err := ValidateExternalName(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateExternalName(%q) error = %v, wantErr %t", tc.name, err, tc.wantErr)
		}
	}
}

func TestRegistryOnlyAcceptsReservedNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&ThinkTool{}); err != nil {
		t.Fatalf("Register(think) error = %v", err)
	}
	if err := r.Register(&ThinkTool{}); err == nil {
		t.Error("duplicate Register(think) succeeded, want error")
	}

	if _, ok := r.Get("think"); !ok {
		t.Error("Get(think) not found after registration")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

type fakeSkillTool struct{ name string }

func (f *fakeSkillTool) Name() string                { return f.name }
func (f *fakeSkillTool) Description() string         { return "fake" }
func (f *fakeSkillTool) Parameters() map[string]any  { return objectSchema(map[string]any{}) }
func (f *fakeSkillTool) Execute(ctx context.Context, args map[string]any) *Result {
	return NewResult("ok")
}

func TestRegistryRejectsNonReservedName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeSkillTool{name: "weather_lookup"}); err == nil {
		t.Error("Register of non-reserved name succeeded, want error")
	}
}

func TestSkillRegistryRejectsReservedNameAtRegistration(t *testing.T) {
	r := NewSkillRegistry(nil)
	handler := func(ctx context.Context, args map[string]any, creds map[string]string) (string, error) {
		return "ok", nil
	}

	if err := r.Register("respond", "shadow the built-in", nil, handler, nil); err == nil {
		t.Error("registering a skill named after a built-in succeeded, want rejection")
	}
	if r.Has("respond") {
		t.Error("rejected skill is still registered")
	}

	if err := r.Register("weather_lookup", "ok name", nil, handler, nil); err != nil {
		t.Errorf("Register(weather_lookup) error = %v", err)
	}
	if err := r.Register("weather_lookup", "again", nil, handler, nil); err == nil {
		t.Error("duplicate skill registration succeeded, want error")
	}
}

func TestSkillInvokeMissingCredentials(t *testing.T) {
	r := NewSkillRegistry(nil)
	called := false
	handler := func(ctx context.Context, args map[string]any, creds map[string]string) (string, error) {
		called = true
		return "ok", nil
	}
	if err := r.Register("mail_send", "send mail", nil, handler, []string{"mail-api-key"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	res := r.Invoke(context.Background(), "mail_send", nil)
	if !res.IsError {
		t.Error("Invoke with missing credentials did not return an error result")
	}
	if !strings.Contains(res.Text, "mail-api-key") {
		t.Errorf("missing-credentials text %q does not name the credential", res.Text)
	}
	if called {
		t.Error("handler invoked despite missing credentials")
	}
}

func TestSkillInvokeEnvFallback(t *testing.T) {
	t.Setenv("CREWD_SKILL_MAIL_API_KEY", "from-env")

	r := NewSkillRegistry(nil)
	var got map[string]string
	handler := func(ctx context.Context, args map[string]any, creds map[string]string) (string, error) {
		got = creds
		return "sent", nil
	}
	if err := r.Register("mail_send", "send mail", nil, handler, []string{"mail-api-key"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	res := r.Invoke(context.Background(), "mail_send", nil)
	if res.IsError {
		t.Fatalf("Invoke() returned error result: %s", res.Text)
	}
	if got["mail-api-key"] != "from-env" {
		t.Errorf("credential = %q, want env fallback value", got["mail-api-key"])
	}
}

func TestSkillInvokePanicBecomesText(t *testing.T) {
	r := NewSkillRegistry(nil)
	handler := func(ctx context.Context, args map[string]any, creds map[string]string) (string, error) {
		panic("boom")
	}
	if err := r.Register("flaky_skill", "panics", nil, handler, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	res := r.Invoke(context.Background(), "flaky_skill", nil)
	if !res.IsError {
		t.Error("panicking skill did not yield an error result")
	}
	if !strings.Contains(res.Text, "boom") {
		t.Errorf("panic text %q does not carry the panic value", res.Text)
	}
}
