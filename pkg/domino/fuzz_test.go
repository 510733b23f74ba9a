// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Frame Fuzz Tests
// ============================================================

func TestFuzz_BuildRequestChecksum(t *testing.T) {
	rng := newFuzzRng(t)

	for i := 0; i < getFuzzRounds(); i++ {
		module, function := rng.Intn(256), rng.Intn(256)
		d1, d2 := rng.Intn(256), rng.Intn(256)

		f, err := BuildRequest(module, function, d1, d2)
		if err != nil {
			t.Fatalf("round %d: BuildRequest(%d, %d, %d, %d) failed: %v", i, module, function, d1, d2, err)
		}

		parsed, err := ParseFrame(f.Bytes())
		if err != nil {
			t.Fatalf("round %d: ParseFrame(% X) failed: %v", i, f[:], err)
		}
		if parsed.Module() != byte(module) || parsed.Function() != byte(function) {
			t.Fatalf("round %d: parsed header mismatch: % X", i, f[:])
		}
	}
}

func TestFuzz_BuildRequestOutOfRange(t *testing.T) {
	rng := newFuzzRng(t)

	for i := 0; i < getFuzzRounds(); i++ {
		args := []int{rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256)}
		bad := rng.Intn(len(args))
		if rng.Intn(2) == 0 {
			args[bad] = -1 - rng.Intn(1000)
		} else {
			args[bad] = 256 + rng.Intn(1000)
		}

		if _, err := BuildRequest(args[0], args[1], args[2], args[3]); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("round %d: BuildRequest(%v) error = %v, want ErrInvalidArgument", i, args, err)
		}
	}
}

// ============================================================
// Response Fuzz Tests
// ============================================================

func TestFuzz_ValidateResponseRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)

	for i := 0; i < getFuzzRounds(); i++ {
		data := make([]byte, rng.Intn(16))
		rng.Read(data)

		resp, err := ValidateResponse(data)
		if len(data) < MinResponseSize {
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("round %d: %d bytes: error = %v, want ErrMalformedResponse", i, len(data), err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("round %d: ValidateResponse(% X) failed: %v", i, data, err)
		}

		wantEmpty := data[2] == 0 && (data[5] == 0xF0 || data[5] == 0xFF)
		if resp.Empty() != wantEmpty {
			t.Fatalf("round %d: Empty() = %v, want %v for % X", i, resp.Empty(), wantEmpty, data)
		}
		if resp.Word() != uint16(data[4])<<8|uint16(data[5]) {
			t.Fatalf("round %d: Word() = %d for % X", i, resp.Word(), data)
		}
	}
}

func FuzzValidateResponse(f *testing.F) {
	f.Add([]byte{0x55, 0x82, 0x01, 0x1F, 0x0A, 0xAB, 0x00})
	f.Add([]byte{0x55, 0x82, 0x00, 0x1F, 0x00, 0xF0})
	f.Add([]byte{0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		resp, err := ValidateResponse(data)
		if err != nil {
			return
		}
		_ = FormatResponse(resp)
		_ = resp.Word()
	})
}
