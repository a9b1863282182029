package enums

import "testing"

func TestNormalizeTokenRole(t *testing.T) {
	cases := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{raw: "", want: RoleBuyer},
		{raw: "buyer", want: RoleBuyer},
		{raw: "user", want: RoleBuyer},
		{raw: "seller", want: RoleSeller},
		{raw: "merchant", want: RoleSeller},
		{raw: " Merchant ", want: RoleSeller},
		{raw: "shipping", want: RoleShipping},
		{raw: "delivery", want: RoleShipping},
		{raw: "admin", want: RoleAdmin},
		{raw: "superuser", wantErr: true},
	}

	for _, tc := range cases {
		got, err := NormalizeTokenRole(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("role %q: expected %s got %s", tc.raw, tc.want, got)
		}
	}
}

func TestParseRoleRejectsAliases(t *testing.T) {
	if _, err := ParseRole("merchant"); err == nil {
		t.Fatal("aliases are only accepted at token parse")
	}
	if r, err := ParseRole("SHIPPING"); err != nil || r != RoleShipping {
		t.Fatalf("expected shipping, got %q err=%v", r, err)
	}
}
