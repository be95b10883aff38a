package rollout

import (
	"fmt"
	"sync"
	"testing"

	"github.com/TimurManjosov/flagcore/identity"
)

func TestBucket_Deterministic(t *testing.T) {
	id := identity.FromString("user-123")
	b1 := Bucket("v1", "app::darkMode", id)
	b2 := Bucket("v1", "app::darkMode", id)
	if b1 != b2 {
		t.Errorf("Bucket is not deterministic: got %d and %d", b1, b2)
	}
	if b1 >= NumBuckets {
		t.Errorf("bucket out of range: %d", b1)
	}
}

func TestBucket_DeterministicAcrossGoroutines(t *testing.T) {
	id, err := identity.Parse("11111111111111111111111111111111")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Bucket("v1", "app::darkMode", id)

	var wg sync.WaitGroup
	results := make([]uint32, 16)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = Bucket("v1", "app::darkMode", id)
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != want {
			t.Errorf("goroutine %d: bucket %d, want %d", i, got, want)
		}
	}
}

func TestBucket_SaltRedistributes(t *testing.T) {
	// Different salts should move at least some users; with 1000 ids the
	// chance of all buckets coinciding is negligible.
	moved := 0
	for i := 0; i < 1000; i++ {
		id := identity.FromString(fmt.Sprintf("user-%d", i))
		if Bucket("v1", "app::darkMode", id) != Bucket("v2", "app::darkMode", id) {
			moved++
		}
	}
	if moved == 0 {
		t.Error("changing the salt moved no users")
	}
}

func TestBucket_Distribution(t *testing.T) {
	// 10 000 distinct ids over 10 buckets of 1000 basis points each should
	// land roughly uniformly.
	counts := make([]int, 10)
	for i := 0; i < 10000; i++ {
		id := identity.FromString(fmt.Sprintf("user-%d", i))
		b := Bucket("v1", "app::feature", id)
		counts[b/1000]++
	}
	for decile, count := range counts {
		if count < 800 || count > 1200 {
			t.Errorf("decile %d has %d ids, expected ~1000", decile, count)
		}
	}
}

func TestThreshold(t *testing.T) {
	cases := []struct {
		rampUp float64
		want   uint32
	}{
		{0, 0},
		{100, 10000},
		{50, 5000},
		{0.01, 1},
		{33.333, 3333},
		{99.999, 10000},
	}
	for _, tc := range cases {
		if got := Threshold(tc.rampUp); got != tc.want {
			t.Errorf("Threshold(%g) = %d, want %d", tc.rampUp, got, tc.want)
		}
	}
}

func TestAdmitted_Boundaries(t *testing.T) {
	for bucket := uint32(0); bucket < NumBuckets; bucket += 1111 {
		if Admitted(0, bucket) {
			t.Errorf("ramp-up 0 admitted bucket %d", bucket)
		}
		if !Admitted(100, bucket) {
			t.Errorf("ramp-up 100 rejected bucket %d", bucket)
		}
	}
	if !Admitted(50, 4999) {
		t.Error("bucket 4999 should be inside a 50% ramp-up")
	}
	if Admitted(50, 5000) {
		t.Error("bucket 5000 should be outside a 50% ramp-up")
	}
}

func TestValidateRampUp(t *testing.T) {
	for _, valid := range []float64{0, 0.5, 50, 100} {
		if err := ValidateRampUp(valid); err != nil {
			t.Errorf("ValidateRampUp(%g) = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []float64{-0.1, 100.1, 1000} {
		if err := ValidateRampUp(invalid); err == nil {
			t.Errorf("ValidateRampUp(%g) succeeded, want error", invalid)
		}
	}
}
