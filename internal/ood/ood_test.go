package ood

import "testing"

func mustConfig(t *testing.T, enabled bool, allow, deny []string) Config {
	t.Helper()
	cfg, err := Compile(enabled, allow, deny)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cfg
}

func TestCheckEmptyQuery(t *testing.T) {
	cfg := mustConfig(t, true, []string{"mqtt"}, nil)
	got := Check("   ", cfg)
	if !got.Refused || got.Reason != "Out of domain" {
		t.Fatalf("got %+v", got)
	}
}

func TestCheckDenyOverridesAllow(t *testing.T) {
	// spec.md invariant 8: deny must win when both match.
	cfg := mustConfig(t, true, []string{"mqtt"}, []string{"weather"})
	got := Check("mqtt weather forecast", cfg)
	if !got.Refused {
		t.Fatalf("expected refusal when deny and allow both match")
	}
}

func TestCheckAllowPasses(t *testing.T) {
	cfg := mustConfig(t, true, []string{"mqtt|aws iot"}, []string{"weather"})
	got := Check("What is MQTT QoS?", cfg)
	if got.Refused {
		t.Fatalf("expected pass, got refused: %s", got.Reason)
	}
}

func TestCheckNoAllowMatchRefuses(t *testing.T) {
	cfg := mustConfig(t, true, []string{"mqtt"}, nil)
	got := Check("what is the weather today?", cfg)
	if !got.Refused {
		t.Fatalf("expected refusal when no allow pattern matches")
	}
}

func TestCheckDisabledIsNoop(t *testing.T) {
	cfg := mustConfig(t, false, nil, []string{"weather"})
	got := Check("what is the weather today?", cfg)
	if got.Refused {
		t.Fatalf("disabled gate must be a no-op")
	}
}

func TestCompileInvalidPattern(t *testing.T) {
	if _, err := Compile(true, []string{"("}, nil); err == nil {
		t.Fatalf("expected compile error for invalid regex")
	}
}

func TestCheckLookahead(t *testing.T) {
	// PCRE-style lookahead: matches queries containing both "job"/"jobs" and "timeout".
	cfg := mustConfig(t, true, []string{`(?=.*\bjobs?\b)(?=.*\btimeout\b)`}, nil)
	got := Check("AWS IoT Jobs rollout timeout", cfg)
	if got.Refused {
		t.Fatalf("expected lookahead pattern to match, got refused: %s", got.Reason)
	}
	got2 := Check("AWS IoT Jobs rollout", cfg)
	if !got2.Refused {
		t.Fatalf("expected refusal when only one lookahead term present")
	}
}
