// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package validation

import (
	"errors"
	"strings"
	"testing"
)

type publishRequest struct {
	Topic string   `json:"topic" validate:"required,room"`
	Kind  string   `json:"kind" validate:"required,envkind"`
	Note  string   `json:"note,omitempty" validate:"max=10"`
	Tags  []string `json:"tags" validate:"max=2"`
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		req        publishRequest
		wantFields []string
		wantSubstr string
	}{
		{name: "valid", req: publishRequest{Topic: "bi-kpis", Kind: "update"}},
		{name: "colon room", req: publishRequest{Topic: "community:stream", Kind: "alert"}},
		{name: "missing topic", req: publishRequest{Kind: "init"}, wantFields: []string{"topic"}, wantSubstr: "topic is required"},
		{name: "bad room", req: publishRequest{Topic: "BI KPIs", Kind: "init"}, wantFields: []string{"topic"}, wantSubstr: "lowercase room name"},
		{name: "bad kind", req: publishRequest{Topic: "bi-kpis", Kind: "patch"}, wantFields: []string{"kind"}, wantSubstr: "one of init"},
		{name: "long note", req: publishRequest{Topic: "bi-kpis", Kind: "init", Note: strings.Repeat("x", 11)}, wantFields: []string{"note"}, wantSubstr: "at most 10 characters"},
		{name: "too many tags", req: publishRequest{Topic: "bi-kpis", Kind: "init", Tags: []string{"a", "b", "c"}}, wantFields: []string{"tags"}, wantSubstr: "at most 2 items"},
		{name: "two failures", req: publishRequest{}, wantFields: []string{"topic", "kind"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ValidateStruct() error = %v, want *RequestValidationError", err)
			}
			if len(ve.Fields) != len(tt.wantFields) {
				t.Fatalf("fields = %+v, want %v", ve.Fields, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if ve.Fields[i].Field != f {
					t.Errorf("field[%d] = %q, want %q", i, ve.Fields[i].Field, f)
				}
			}
			if tt.wantSubstr != "" && !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("Error() = %q, want substring %q", err.Error(), tt.wantSubstr)
			}
			if _, ok := ve.Details()["fields"]; !ok {
				t.Error("Details() missing fields")
			}
		})
	}
}
