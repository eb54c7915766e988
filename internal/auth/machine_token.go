package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const machineTokenPrefix = "flc_"

// GenerateMachineToken creates a token for automation clients together
// with the hash that goes into the configuration.
// Format: flc_<uuid>_<random_secret>
func GenerateMachineToken() (token, hash string, err error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	token = fmt.Sprintf("%s%s_%s", machineTokenPrefix, uuid.New().String(), hex.EncodeToString(secretBytes))
	return token, HashMachineToken(token), nil
}

// HashMachineToken returns the hex sha256 of token.
func HashMachineToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func validMachineTokenFormat(token string) bool {
	if len(token) < len(machineTokenPrefix)+36+1+64 {
		return false
	}
	return token[:len(machineTokenPrefix)] == machineTokenPrefix
}
