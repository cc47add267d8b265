package protocol_test

import (
	"strings"
	"testing"

	"claimviz.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	samples := []string{
		`{"type":"HELLO","protocol_version":"1.0","viewer_id":"alice","world_id":"OVERWORLD","pos":[0,64,0],"view_distance":8,"capabilities":{"max_queue":32}}`,
		`{"type":"MOVE","protocol_version":"1.0","pos":[13,64,-2]}`,
		`{"type":"VISUALIZE","protocol_version":"1.0","claim_id":"c1","viz_type":"SUBDIVISION"}`,
		`{"type":"VISUALIZE","protocol_version":"1.0","provider":"fake_block","nearby_radius":64,"anchor":[1,2,3],"height":63}`,
		`{"type":"VISUALIZE","protocol_version":"1.0","area":{"min":[0,0,0],"max":[3,0,3],"type":"INITIALIZE_ZONE"}}`,
		`{"type":"REVERT","protocol_version":"1.0"}`,
	}
	for _, s := range samples {
		if _, err := v.Validate([]byte(s)); err != nil {
			t.Fatalf("validate %s: %v", s, err)
		}
	}
}

func TestSchemas_Rejects(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	cases := map[string]string{
		"not json":         `{"type":`,
		"server message":   `{"type":"WELCOME","protocol_version":"1.0"}`,
		"short pos":        `{"type":"MOVE","protocol_version":"1.0","pos":[1,2]}`,
		"no viewer":        `{"type":"HELLO","protocol_version":"1.0","pos":[0,0,0]}`,
		"two selectors":    `{"type":"VISUALIZE","protocol_version":"1.0","claim_id":"c1","nearby_radius":5}`,
		"no selector":      `{"type":"VISUALIZE","protocol_version":"1.0"}`,
		"bad viz type":     `{"type":"VISUALIZE","protocol_version":"1.0","claim_id":"c1","viz_type":"LASER"}`,
		"extra field":      `{"type":"REVERT","protocol_version":"1.0","force":true}`,
		"fractional coord": `{"type":"MOVE","protocol_version":"1.0","pos":[1.5,2,3]}`,
	}
	for name, s := range cases {
		if _, err := v.Validate([]byte(s)); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestSchemas_ReportsType(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	base, err := v.Validate([]byte(`{"type":"MOVE","protocol_version":"1.0","pos":"x"}`))
	if err == nil || base.Type != protocol.TypeMove {
		t.Fatalf("expected MOVE routing header with error, got %+v %v", base, err)
	}
	if _, err := v.Validate([]byte(`{"type":"ACT"}`)); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("unknown type: %v", err)
	}
}
