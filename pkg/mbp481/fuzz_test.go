// SPDX-License-Identifier: MIT

package mbp481

import (
	"bytes"
	"encoding/binary"
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

// TestFuzzAteEncode_LayoutInvariants encodes random ATE frames and checks the
// structural invariants of both framing variants
func TestFuzzAteEncode_LayoutInvariants(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		opcode := byte(rng.Intn(256))
		payload := make([]byte, rng.Intn(AteDefaultMaxPayload+1))
		rng.Read(payload)

		f, err := NewAteFrame(opcode, payload, AteDefaultMaxPayload)
		if err != nil {
			t.Fatalf("Round %d: unexpected construction error: %v", i, err)
		}
		f.WithCrc = rng.Intn(2) == 1
		encoded := f.Encode()

		if opcode == AteOpcodeWriteParam {
			if encoded[0] != AtePreamble0 {
				t.Errorf("Round %d: write-param preamble = 0x%02X", i, encoded[0])
			}
			if encoded[len(encoded)-1] != CrByte {
				t.Errorf("Round %d: write-param frame not CR-terminated", i)
			}
			gotLen := binary.BigEndian.Uint16(encoded[2:4])
			if int(gotLen) != len(payload) {
				t.Errorf("Round %d: big-endian length = %d, want %d", i, gotLen, len(payload))
			}
			if !bytes.Equal(encoded[4:4+len(payload)], payload) {
				t.Errorf("Round %d: payload corrupted in encoding", i)
			}
			if f.WithCrc {
				body := encoded[1 : 4+len(payload)]
				want := Crc16Modbus(body)
				got := binary.LittleEndian.Uint16(encoded[4+len(payload) : 6+len(payload)])
				if got != want {
					t.Errorf("Round %d: CRC = 0x%04X, want 0x%04X", i, got, want)
				}
			}
		} else {
			if encoded[0] != AtePreamble0 || encoded[1] != AtePreamble1 {
				t.Errorf("Round %d: preamble = % X", i, encoded[:2])
			}
			if encoded[2] != opcode {
				t.Errorf("Round %d: opcode = 0x%02X, want 0x%02X", i, encoded[2], opcode)
			}
			gotLen := binary.LittleEndian.Uint16(encoded[3:5])
			if int(gotLen) != len(payload) {
				t.Errorf("Round %d: little-endian length = %d, want %d", i, gotLen, len(payload))
			}
			if len(encoded) != 5+len(payload) {
				t.Errorf("Round %d: frame length = %d, want %d", i, len(encoded), 5+len(payload))
			}
		}
	}
}

// TestFuzzBootLoaderEncode_ChecksumInvariant checks that the checksum variant
// always verifies and that encoding is deterministic
func TestFuzzBootLoaderEncode_ChecksumInvariant(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		f := NewBootLoaderFrame(byte(rng.Intn(256)), rng.Uint32(), uint16(rng.Intn(0x10000)), true)

		encoded := f.Encode()
		if len(encoded) != BootLoaderFrameLen+1 {
			t.Fatalf("Round %d: frame length = %d, want %d", i, len(encoded), BootLoaderFrameLen+1)
		}
		ok, err := VerifyChecksum(encoded)
		if err != nil {
			t.Fatalf("Round %d: VerifyChecksum: %v", i, err)
		}
		if !ok {
			t.Errorf("Round %d: checksum did not verify: % X", i, encoded)
		}
		if !bytes.Equal(encoded, f.Encode()) {
			t.Errorf("Round %d: encoding not deterministic", i)
		}
	}
}

// TestFuzzCmosDecode_RandomBytes feeds random bytes to the triplet decoder
// and verifies it doesn't crash or panic
func TestFuzzCmosDecode_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(64)
		data := make([]byte, length)
		rng.Read(data)

		// Must not panic; errors are expected for most inputs
		DecodeCmosShellCommand(data)
		ParseRegisterReply(data)
	}
}

// TestFuzzCmosRoundTrip encodes random valid commands and decodes them back
func TestFuzzCmosRoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		addr := rng.Intn(256)
		data := rng.Intn(256)

		var cmd *CmosShellCommand
		var err error
		if rng.Intn(2) == 1 {
			cmd, err = NewCmosWrite(addr, data)
		} else {
			cmd, err = NewCmosRead(addr)
		}
		if err != nil {
			t.Fatalf("Round %d: construction error: %v", i, err)
		}

		decoded, err := DecodeCmosShellCommand(cmd.Encode())
		if err != nil {
			t.Fatalf("Round %d: decode error: %v", i, err)
		}
		if decoded.Op != cmd.Op || decoded.Addr != cmd.Addr || decoded.Data != cmd.Data {
			t.Errorf("Round %d: round trip mismatch: got %+v, want %+v", i, decoded, cmd)
		}
	}
}

// TestFuzzClassifier_RandomResponses classifies random byte sequences and
// verifies the raw bytes survive whatever verdict is produced
func TestFuzzClassifier_RandomResponses(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	c := NewClassifier()
	modes := []Mode{ModeRootMenu, ModeTelemetry, ModeCmosDay, ModeCmosNight, ModeAte, ModeBootLoader}

	for i := 0; i < rounds; i++ {
		mode := modes[rng.Intn(len(modes))]
		length := rng.Intn(256)
		raw := make([]byte, length)
		rng.Read(raw)

		v := c.Classify(mode, raw)
		if length == 0 && v.Kind != VerdictUnresponsive {
			t.Errorf("Round %d: empty response classified %v", i, v.Kind)
		}
		if length > 0 && v.Kind == VerdictUnresponsive {
			t.Errorf("Round %d: %d bytes classified unresponsive", i, length)
		}
		if v.Kind == VerdictCrashSuspected {
			t.Errorf("Round %d: classifier produced CrashSuspected", i)
		}
		if v.Kind != VerdictUnresponsive && !bytes.Equal(v.Raw, raw) {
			t.Errorf("Round %d: raw response not preserved", i)
		}
	}
}

// TestFuzzCrc16_Deterministic tests CRC calculation with random data
func TestFuzzCrc16_Deterministic(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(1000) + 1
		data := make([]byte, length)
		rng.Read(data)

		crc1 := Crc16Modbus(data)
		crc2 := Crc16Modbus(data)
		if crc1 != crc2 {
			t.Errorf("Round %d: CRC not deterministic: 0x%04X != 0x%04X", i, crc1, crc2)
		}

		sum := XorChecksum(data)
		if XorChecksum(append(data, sum)) != 0 {
			t.Errorf("Round %d: XOR checksum does not cancel itself", i)
		}
	}
}
