package seed

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

//go:embed dataset.json
var datasetJSON []byte

// SeedStaff describes one staff account in the seed dataset. Password is
// the initial plaintext credential, hashed before storage.
type SeedStaff struct {
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	BunkID   *string `json:"bunk_id,omitempty"`
	Password string  `json:"password"`
}

// Dataset is the embedded roster and catalog used for initial seeding.
type Dataset struct {
	Bunks    []models.Bunk    `json:"bunks"`
	Campers  []models.Camper  `json:"campers"`
	Missions []models.Mission `json:"missions"`
	Staff    []SeedStaff      `json:"staff"`
	Settings []models.Setting `json:"settings"`
}

// Load parses the embedded dataset.
func Load() (*Dataset, error) {
	var data Dataset
	if err := json.Unmarshal(datasetJSON, &data); err != nil {
		return nil, fmt.Errorf("parse seed dataset: %w", err)
	}
	return &data, nil
}

// codeAlphabet omits 0/O and 1/I so codes survive being read aloud and
// copied by hand.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the access code size handed to campers.
const CodeLength = 6

// GenerateCode produces one random camper access code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate access code: %w", err)
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// AssignCodes fills in a unique access code for every camper.
func AssignCodes(campers []models.Camper) error {
	used := make(map[string]bool, len(campers))
	for i := range campers {
		for {
			code, err := GenerateCode()
			if err != nil {
				return err
			}
			if !used[code] {
				used[code] = true
				campers[i].Code = code
				break
			}
		}
	}
	return nil
}
