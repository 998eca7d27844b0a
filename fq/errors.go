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
package fq

import (
	"github.com/golang/glog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// invariantViolation reports a broken class invariant (spec §7): these are
// bugs in the hook caller, not recoverable errors, so -- matching the C
// source's BUG_ON -- they are fatal. glog.Fatalf both logs and terminates,
// which is the closest Go idiom to the source's kernel panic.
func invariantViolation(format string, args ...any) {
	err := status.Errorf(codes.Internal, format, args...)
	glog.Fatalf("fq: invariant violation: %v", err)
}
