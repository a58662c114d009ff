package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/vinylhouse/labelapi/internal/api/middleware"
)

// Prints a bcrypt hash for ADMIN_API_KEY_HASH. Without --api-key a random key
// is generated and printed once.
func main() {
	apiKeyFlag := flag.String("api-key", "", "admin API key to hash (generated when empty)")
	flag.Parse()

	apiKey := strings.TrimSpace(*apiKeyFlag)
	generated := false
	if apiKey == "" {
		apiKey = "vh_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		generated = true
	}

	hash, err := middleware.HashAPIKey(apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	if generated {
		fmt.Printf("API key (save it; it cannot be retrieved later): %s\n", apiKey)
	}
	fmt.Printf("ADMIN_API_KEY_HASH=%s\n", hash)
}
