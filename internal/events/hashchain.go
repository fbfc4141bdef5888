package events

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
)

// computeChainHashes mirrors the teacher's ledger hashing scheme: the
// payload hash covers every field except Hash itself, and Hash covers
// PrevHash+PayloadHash, linking each record to its predecessor.
func computeChainHashes(r chainedRecord) (payloadHash, hash string, err error) {
	payload := struct {
		Type      string          `json:"type"`
		Event     string          `json:"event"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
		PrevHash  string          `json:"prev_hash"`
	}{
		Type:      r.Type,
		Event:     r.Event,
		Timestamp: r.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
		Data:      r.Data,
		PrevHash:  r.PrevHash,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	payloadHash = hashHex(payloadBytes)
	hash = hashHex([]byte(r.PrevHash + payloadHash))
	return payloadHash, hash, nil
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// readLastChainHash scans an already-open day file for the Hash field of
// its last well-formed line; an empty file or one with no parseable
// lines yields "", the genesis previous-hash value.
func readLastChainHash(f *os.File) (string, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	last := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r chainedRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			continue
		}
		last = r.Hash
	}
	return last, scanner.Err()
}

// VerifyChain re-derives every record's payload_hash/hash from a day
// file's already-parsed chainedRecord slice and confirms the prev_hash
// linkage, returning ErrChainBroken at the first mismatch.
func VerifyChain(records []chainedRecord) error {
	prev := ""
	for _, r := range records {
		if r.PrevHash != prev {
			return ErrChainBroken
		}
		payloadHash, hash, err := computeChainHashes(r)
		if err != nil {
			return err
		}
		if r.PayloadHash != payloadHash || r.Hash != hash {
			return ErrChainBroken
		}
		prev = r.Hash
	}
	return nil
}
