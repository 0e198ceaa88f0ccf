package criteria

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML criteria document and returns it with the raw bytes.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("criteria %s: %w", path, err)
	}

	if err := Validate(&doc); err != nil {
		return nil, data, err
	}

	return &doc, data, nil
}

// LoadOrDefault returns the document at path, or the shipped defaults
// when path is empty. The returned bytes are the YAML that was (or
// would be) loaded, so a run can persist exactly what it applied.
func LoadOrDefault(path string) (*Document, []byte, error) {
	if path != "" {
		return Load(path)
	}

	doc := Default()
	if err := Validate(doc); err != nil {
		return nil, nil, fmt.Errorf("shipped criteria defaults invalid: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// Hash generates a SHA-256 hash of the document (canonical JSON).
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(doc *Document) (string, error) {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
