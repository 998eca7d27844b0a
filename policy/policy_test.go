//
// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
package policy

import (
	"testing"
	"time"

	"github.com/google/freqsched/fq"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		attr    Attr
		wantErr bool
	}{
		{
			name:    "valid",
			attr:    Attr{Policy: ID, Period: 10 * time.Millisecond, CPUMask: 0b1, Priority: 50},
			wantErr: false,
		},
		{
			name:    "wrong policy",
			attr:    Attr{Policy: 1, Period: 10 * time.Millisecond, CPUMask: 0b1},
			wantErr: true,
		},
		{
			name:    "negative period",
			attr:    Attr{Policy: ID, Period: -time.Millisecond, CPUMask: 0b1},
			wantErr: true,
		},
		{
			name:    "zero period is legal but degenerate",
			attr:    Attr{Policy: ID, Period: 0, CPUMask: 0b1},
			wantErr: false,
		},
		{
			name:    "empty affinity mask",
			attr:    Attr{Policy: ID, Period: time.Millisecond, CPUMask: 0},
			wantErr: true,
		},
		{
			name:    "priority out of range",
			attr:    Attr{Policy: ID, Period: time.Millisecond, CPUMask: 0b1, Priority: fq.MaxRTPrio},
			wantErr: true,
		},
		{
			name:    "elevated priority with zero period rejected",
			attr:    Attr{Policy: ID, Period: 0, CPUMask: 0b1, Priority: fq.MaxRTPrio - 1},
			wantErr: true,
		},
		{
			name:    "elevated priority with nonzero period is legal",
			attr:    Attr{Policy: ID, Period: time.Millisecond, CPUMask: 0b1, Priority: fq.MaxRTPrio - 1},
			wantErr: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.attr.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewEntityRejectsInvalidAttr(t *testing.T) {
	attr := Attr{Policy: 99, Period: time.Millisecond, CPUMask: 0b1}
	if _, err := attr.NewEntity(1); err == nil {
		t.Fatal("NewEntity() with invalid attr returned no error")
	}
}

func TestNewEntityConstructsEntityFromValidAttr(t *testing.T) {
	attr := Attr{Policy: ID, Period: 25 * time.Millisecond, CPUMask: 0b11, Priority: 40}
	e, err := attr.NewEntity(7)
	if err != nil {
		t.Fatalf("NewEntity() unexpected error: %v", err)
	}
	if e.Task != 7 || e.Period != 25*time.Millisecond || e.CPUMask != 0b11 || e.Priority() != 40 {
		t.Errorf("NewEntity() = %+v, fields don't match attr", e)
	}
	if !e.IsNew {
		t.Error("constructed entity should have IsNew set")
	}
}
