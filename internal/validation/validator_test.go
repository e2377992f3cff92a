// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	URL      string   `validate:"required,url"`
	Priority string   `validate:"omitempty,oneof=high medium low"`
	URLs     []string `validate:"omitempty,max=3,dive,url"`
	Count    int      `validate:"min=0,max=10"`
}

func TestValidateStructValid(t *testing.T) {
	req := sampleRequest{
		URL:      "https://cdn.example.com/a.png",
		Priority: "high",
		URLs:     []string{"https://cdn.example.com/b.png"},
		Count:    3,
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("ValidateStruct = %v, want nil", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	cases := []struct {
		name    string
		req     sampleRequest
		wantSub string
	}{
		{"missing url", sampleRequest{}, "URL is required"},
		{"bad priority", sampleRequest{URL: "https://x.test/a", Priority: "urgent"}, "must be one of"},
		{"count too large", sampleRequest{URL: "https://x.test/a", Count: 11}, "at most 10"},
		{"too many urls", sampleRequest{URL: "https://x.test/a", URLs: []string{"https://a.test/1", "https://a.test/2", "https://a.test/3", "https://a.test/4"}}, "at most 3"},
		{"invalid nested url", sampleRequest{URL: "https://x.test/a", URLs: []string{"not a url"}}, "valid URL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(&tc.req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.wantSub)
			}
		})
	}
}

func TestValidateStructCollectsAllFields(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Priority: "urgent", Count: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Fields) != 3 {
		t.Errorf("fields = %d, want 3 (URL, Priority, Count)", len(err.Fields))
	}
}
