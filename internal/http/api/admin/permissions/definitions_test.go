package permissions

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDefinitionKeysAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for _, def := range Definitions() {
		if def.Key == "" {
			t.Fatal("empty permission key")
		}
		if _, dup := seen[def.Key]; dup {
			t.Fatalf("duplicate permission key: %s", def.Key)
		}
		seen[def.Key] = struct{}{}
	}
}

func TestKeyNormalizesMethod(t *testing.T) {
	if got := Key("get", " /v0/admin/customers "); got != "GET /v0/admin/customers" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestValidatePermissionsRejectsUnknownKey(t *testing.T) {
	if errValidate := ValidatePermissions([]string{"GET /v0/admin/customers"}); errValidate != nil {
		t.Fatalf("expected known key to validate, got %v", errValidate)
	}
	if errValidate := ValidatePermissions([]string{"GET /v0/admin/nope"}); errValidate == nil {
		t.Fatal("expected unknown key to fail validation")
	}
}

func TestNormalizePermissionsDedupesAndSorts(t *testing.T) {
	got := NormalizePermissions([]string{" b ", "a", "b", ""})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected normalization: %v", got)
	}
}

func TestParsePermissionsRoundTrip(t *testing.T) {
	raw, errMarshal := MarshalPermissions([]string{"GET /v0/admin/customers"})
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	parsed := ParsePermissions(datatypes.JSON(raw))
	if len(parsed) != 1 || parsed[0] != "GET /v0/admin/customers" {
		t.Fatalf("unexpected parse result: %v", parsed)
	}
	if !HasPermission(parsed, "GET /v0/admin/customers") {
		t.Fatal("expected permission to be present")
	}
	if HasPermission(parsed, "DELETE /v0/admin/customers/:id") {
		t.Fatal("unexpected permission present")
	}
}

func TestParsePermissionsToleratesGarbage(t *testing.T) {
	if got := ParsePermissions(datatypes.JSON(`{"not":"a list"}`)); len(got) != 0 {
		t.Fatalf("expected empty set for malformed column, got %v", got)
	}
	if got := ParsePermissions(nil); len(got) != 0 {
		t.Fatalf("expected empty set for nil column, got %v", got)
	}
}
