package document_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

func TestDocument_New(t *testing.T) {
	input := map[string]any{"client_name": "ABC Corp"}
	d := document.New(input)

	if d.Version() != 0 {
		t.Errorf("Version() = %d, want 0", d.Version())
	}

	v, ok := d.Get("client_name")
	if !ok || v != "ABC Corp" {
		t.Errorf("Get(client_name) = %v, %v, want ABC Corp, true", v, ok)
	}

	w, _ := d.Writer("client_name")
	if w != document.InputWriter {
		t.Errorf("Writer(client_name) = %q, want %q", w, document.InputWriter)
	}

	input["client_name"] = "mutated"
	if v, _ := d.Get("client_name"); v != "ABC Corp" {
		t.Error("document should not alias the input map")
	}
}

func TestDocument_Merge(t *testing.T) {
	base := document.New(map[string]any{"client_name": "ABC Corp"})

	tests := []struct {
		name        string
		update      document.Update
		writes      document.KeySet
		override    bool
		expectError bool
	}{
		{
			name:   "keys inside write-set",
			update: document.Update{"company": "ABC Corp Ltd"},
			writes: document.NewKeySet("company"),
		},
		{
			name:   "subset of write-set",
			update: document.Update{"company": "ABC Corp Ltd"},
			writes: document.NewKeySet("company", "company_address"),
		},
		{
			name:        "key outside write-set",
			update:      document.Update{"company": "x", "total": 10},
			writes:      document.NewKeySet("company"),
			expectError: true,
		},
		{
			name:        "existing key without override",
			update:      document.Update{"client_name": "other"},
			writes:      document.NewKeySet("client_name"),
			expectError: true,
		},
		{
			name:     "existing key with override",
			update:   document.Update{"client_name": "other"},
			writes:   document.NewKeySet("client_name"),
			override: true,
		},
		{
			name:   "empty update",
			update: document.Update{},
			writes: document.NewKeySet("company"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := base.Merge("producer", tt.update, tt.writes, tt.override)

			if tt.expectError {
				if !errors.Is(err, fault.ErrWriteConflict) {
					t.Fatalf("expected ErrWriteConflict, got %v", err)
				}
				if merged.Version() != base.Version() {
					t.Errorf("failed merge changed version to %d", merged.Version())
				}
				return
			}

			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			if merged.Version() != base.Version()+1 {
				t.Errorf("Version() = %d, want %d", merged.Version(), base.Version()+1)
			}
			for k, want := range tt.update {
				got, _ := merged.Get(k)
				if got != want {
					t.Errorf("Get(%q) = %v, want %v", k, got, want)
				}
				if w, _ := merged.Writer(k); w != "producer" {
					t.Errorf("Writer(%q) = %q, want producer", k, w)
				}
			}
		})
	}
}

func TestDocument_MergeLeavesSnapshotsIntact(t *testing.T) {
	d := document.New(map[string]any{"client_name": "ABC Corp"})
	snap := d.Snapshot()

	next, err := d.Merge("company_info", document.Update{"company": "ABC"}, document.NewKeySet("company"), false)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if snap.Has("company") {
		t.Error("snapshot taken before merge should not see new key")
	}
	if d.Has("company") {
		t.Error("receiver should not be mutated by Merge")
	}
	if !next.Snapshot().Has("company") {
		t.Error("merged document snapshot should contain company")
	}
	if snap.Version() != 0 || next.Snapshot().Version() != 1 {
		t.Errorf("snapshot versions = %d, %d, want 0, 1", snap.Version(), next.Snapshot().Version())
	}
}

func TestDocument_Restore(t *testing.T) {
	d := document.Restore(3,
		map[string]any{"company": "ABC"},
		map[string]string{"company": "company_info"},
	)

	if d.Version() != 3 {
		t.Errorf("Version() = %d, want 3", d.Version())
	}
	if w, _ := d.Writer("company"); w != "company_info" {
		t.Errorf("Writer(company) = %q, want company_info", w)
	}

	empty := document.Restore(0, nil, nil)
	if _, err := empty.Merge("p", document.Update{"k": 1}, document.NewKeySet("k"), false); err != nil {
		t.Errorf("Merge on restored empty document failed: %v", err)
	}
}

func TestKeySet_Intersect(t *testing.T) {
	a := document.NewKeySet("total", "header", "footer")
	b := document.NewKeySet("footer", "total", "pricing")

	got := a.Intersect(b)
	want := []string{"footer", "total"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Intersect() = %v, want %v", got, want)
	}
}

func keysFrom(prefix string, ids []int) document.Update {
	u := make(document.Update, len(ids))
	for _, id := range ids {
		u[fmt.Sprintf("%s%d", prefix, id)] = id
	}
	return u
}

func TestDocument_MergeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("disjoint merges commute", prop.ForAll(
		func(as, bs []int) bool {
			ua, ub := keysFrom("a", as), keysFrom("b", bs)
			base := document.New(map[string]any{"input": true})

			ab, err := base.Merge("A", ua, ua.Keys(), false)
			if err != nil {
				return false
			}
			ab, err = ab.Merge("B", ub, ub.Keys(), false)
			if err != nil {
				return false
			}

			ba, err := base.Merge("B", ub, ub.Keys(), false)
			if err != nil {
				return false
			}
			ba, err = ba.Merge("A", ua, ua.Keys(), false)
			if err != nil {
				return false
			}

			return reflect.DeepEqual(ab.Values(), ba.Values()) &&
				reflect.DeepEqual(ab.Writers(), ba.Writers())
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.SliceOf(gen.IntRange(0, 40)),
	))

	properties.Property("merge succeeds only for keys inside the write-set", prop.ForAll(
		func(updateIDs, writeIDs []int) bool {
			update := keysFrom("k", updateIDs)
			writes := keysFrom("k", writeIDs).Keys()

			inside := true
			for k := range update {
				if !writes.Has(k) {
					inside = false
				}
			}

			merged, err := document.New(nil).Merge("P", update, writes, false)
			if !inside {
				return errors.Is(err, fault.ErrWriteConflict)
			}
			if err != nil {
				return false
			}
			for k := range merged.Keys() {
				if !writes.Has(k) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10)),
		gen.SliceOf(gen.IntRange(0, 10)),
	))

	properties.TestingRun(t)
}
