package engine

import (
	"testing"

	"github.com/TimurManjosov/flagcore/identity"
)

func TestValidateExpression(t *testing.T) {
	cases := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"empty", "", ErrEmptyExpression},
		{"whitespace", "   ", ErrEmptyExpression},
		{"not json", "{plan ==", ErrInvalidExpression},
		{"valid equality", `{"==": [{"var": "plan"}, "premium"]}`, nil},
		{"valid in", `{"in": [{"var": "locale"}, ["en-US", "en-GB"]]}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateExpression(tc.expr)
			if (err == nil) != (tc.wantErr == nil) {
				t.Errorf("ValidateExpression = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestExpressionExtension_MatchesAttributes(t *testing.T) {
	ext, err := ExpressionExtension("plan-check", `{"==": [{"var": "plan"}, "premium"]}`)
	if err != nil {
		t.Fatalf("ExpressionExtension: %v", err)
	}
	if ext.Specificity != ExpressionSpecificity {
		t.Errorf("Specificity = %d, want %d", ext.Specificity, ExpressionSpecificity)
	}

	premium := NewContext(identity.FromString("u")).WithAttribute("plan", "premium")
	ok, err := ext.Match(premium)
	if err != nil || !ok {
		t.Errorf("premium context: match=%t err=%v, want true", ok, err)
	}

	free := NewContext(identity.FromString("u")).WithAttribute("plan", "free")
	ok, err = ext.Match(free)
	if err != nil || ok {
		t.Errorf("free context: match=%t err=%v, want false", ok, err)
	}
}

func TestExpressionExtension_SeesBuiltInAxes(t *testing.T) {
	ext, err := ExpressionExtension("platform-check", `{"==": [{"var": "platform"}, "IOS"]}`)
	if err != nil {
		t.Fatalf("ExpressionExtension: %v", err)
	}
	ctx := NewContext(identity.FromString("u")).WithPlatform("IOS")
	ok, err := ext.Match(ctx)
	if err != nil || !ok {
		t.Errorf("platform should be visible to expressions: match=%t err=%v", ok, err)
	}
}

func TestExpressionExtension_MissingVarIsFalsy(t *testing.T) {
	ext, err := ExpressionExtension("plan-check", `{"==": [{"var": "plan"}, "premium"]}`)
	if err != nil {
		t.Fatalf("ExpressionExtension: %v", err)
	}
	ok, err := ext.Match(NewContext(identity.FromString("u")))
	if err != nil || ok {
		t.Errorf("missing attribute should not match: match=%t err=%v", ok, err)
	}
}

func TestExpressionExtension_RejectsInvalid(t *testing.T) {
	if _, err := ExpressionExtension("bad", "not-json"); err == nil {
		t.Error("invalid expression accepted")
	}
}

func TestAttributeMap(t *testing.T) {
	ctx := NewContext(identity.FromString("user-1")).
		WithLocale("en-US").
		WithPlatform("IOS").
		WithAxis("tier", "premium").
		WithAttribute("age", 30)
	v, err := ctx.WithVersionString("3.1.0")
	if err != nil {
		t.Fatalf("WithVersionString: %v", err)
	}
	m := v.AttributeMap()

	if m["locale"] != "en-US" || m["platform"] != "IOS" || m["version"] != "3.1.0" {
		t.Errorf("built-in axes missing from attribute map: %v", m)
	}
	if m["tier"] != "premium" || m["age"] != 30 {
		t.Errorf("custom entries missing from attribute map: %v", m)
	}
	if m["id"] != string(identity.FromString("user-1")) {
		t.Errorf("id missing from attribute map: %v", m["id"])
	}
}
