package messaging

import "testing"

var completePlatform = CredentialSet{
	AccountID:    "AC_platform",
	AuthSecret:   "platform_secret",
	SenderNumber: "+15550001111",
}

func TestResolveTenantWinsOverPlatform(t *testing.T) {
	resolver := NewResolver(completePlatform)
	tenant := &CredentialSet{
		AccountID:    "AC_tenant",
		AuthSecret:   "tenant_secret",
		SenderNumber: "+15552223333",
	}

	eff := resolver.Resolve(tenant)
	if eff.Source != SourceTenant {
		t.Fatalf("expected tenant source, got %s", eff.Source)
	}
	if eff.Credentials != *tenant {
		t.Fatalf("expected tenant credentials, got %+v", eff.Credentials)
	}
}

func TestResolveTenantWinsWithoutPlatform(t *testing.T) {
	resolver := NewResolver(CredentialSet{})
	tenant := &CredentialSet{
		AccountID:    "AC_tenant",
		AuthSecret:   "tenant_secret",
		SenderNumber: "+15552223333",
	}

	eff := resolver.Resolve(tenant)
	if eff.Source != SourceTenant {
		t.Fatalf("expected tenant source, got %s", eff.Source)
	}
}

func TestResolvePartialTenantFallsThrough(t *testing.T) {
	resolver := NewResolver(completePlatform)
	partials := []*CredentialSet{
		nil,
		{},
		{AccountID: "AC_tenant"},
		{AccountID: "AC_tenant", AuthSecret: "tenant_secret"},
		{AccountID: "AC_tenant", AuthSecret: "tenant_secret", SenderNumber: "   "},
	}

	for i, tenant := range partials {
		eff := resolver.Resolve(tenant)
		if eff.Source != SourcePlatform {
			t.Fatalf("case %d: expected platform source, got %s", i, eff.Source)
		}
		if eff.Credentials != completePlatform {
			t.Fatalf("case %d: expected platform credentials", i)
		}
	}
}

func TestResolveNothingConfigured(t *testing.T) {
	resolver := NewResolver(CredentialSet{AccountID: "AC_only"})

	eff := resolver.Resolve(nil)
	if eff.Source != SourceNone {
		t.Fatalf("expected none source, got %s", eff.Source)
	}
	if eff.Usable() {
		t.Fatal("expected unusable config")
	}
	if eff.Credentials != (CredentialSet{}) {
		t.Fatalf("expected empty credentials, got %+v", eff.Credentials)
	}
}

func TestPlatformConfigured(t *testing.T) {
	if !NewResolver(completePlatform).PlatformConfigured() {
		t.Fatal("expected complete platform config to report configured")
	}
	if NewResolver(CredentialSet{AccountID: "AC"}).PlatformConfigured() {
		t.Fatal("expected partial platform config to report unconfigured")
	}
}

func TestIsComplete(t *testing.T) {
	if (CredentialSet{AccountID: "a", AuthSecret: "b"}).IsComplete() {
		t.Fatal("two of three fields should not be complete")
	}
	if (CredentialSet{AccountID: " ", AuthSecret: "b", SenderNumber: "c"}).IsComplete() {
		t.Fatal("whitespace-only field should not count")
	}
	if !completePlatform.IsComplete() {
		t.Fatal("expected complete set")
	}
}
