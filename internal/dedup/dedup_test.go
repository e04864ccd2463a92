// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/deskqa/ingestion/internal/testutil"
)

// TestFilter verifies claim, repeat and release of ticket ids.
func TestFilter(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	ctx := context.Background()
	f := NewFilter(rdb, time.Minute)

	isNew, err := f.IsNew(ctx, "t1")
	if err != nil || !isNew {
		t.Fatalf("first IsNew = %v, %v; want true, nil", isNew, err)
	}

	isNew, err = f.IsNew(ctx, "t1")
	if err != nil || isNew {
		t.Fatalf("second IsNew = %v, %v; want false, nil", isNew, err)
	}

	ttl, err := rdb.TTL(ctx, keyPrefix+"t1").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected TTL %v (err %v)", ttl, err)
	}

	if err := f.Forget(ctx, "t1"); err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	isNew, err = f.IsNew(ctx, "t1")
	if err != nil || !isNew {
		t.Fatalf("IsNew after Forget = %v, %v; want true, nil", isNew, err)
	}
}

// TestNewFilter_DefaultTTL verifies the zero-ttl default.
func TestNewFilter_DefaultTTL(t *testing.T) {
	if f := NewFilter(nil, 0); f.ttl != DefaultTTL {
		t.Errorf("expected default TTL, got %v", f.ttl)
	}
}
