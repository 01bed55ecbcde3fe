// Command helper mints identity tokens for local development and encodes PEM
// keys into the PRIVATE_KEY format.
package main

import (
	"bufio"
	"crypto/rsa"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"brandhub/internal/authz"
	"brandhub/internal/config"
	"brandhub/internal/utils"
	base64_ "brandhub/internal/utils/base64"
	"brandhub/internal/utils/crypto"
	"brandhub/internal/utils/logger"
)

func main() {
	var log = logger.New("helper")

	encodeKey := flag.String("encode-key", "", "path of a PEM private key to print as PRIVATE_KEY")
	userID := flag.String("user", "", "user ID (subject) of the token")
	email := flag.String("email", "", "email of the token holder")
	name := flag.String("name", "", "display name of the token holder")
	flag.Parse()

	if *encodeKey != "" {
		pem, err := os.ReadFile(*encodeKey)
		if err != nil {
			_ = log.Error("❌ Failed to read key", err)
			os.Exit(1)
		}
		fmt.Println(base64_.EncodeToBase64(string(pem)))
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			_ = log.Error("❌ Failed to load environment variables", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		_ = log.Error("❌ Failed to load configuration", err)
		os.Exit(1)
	}

	var key *rsa.PrivateKey
	if cfg.Crypto.PrivateKey != "" {
		if err := crypto.InitializeKeys(cfg.Crypto.PrivateKey); err != nil {
			_ = log.Error("❌ Failed to initialize keys", err)
			os.Exit(1)
		}
		key = crypto.PrivateKey
	}
	issuer := utils.NewTokenIssuer(cfg.JWT.Secret, key, cfg.JWT.Issuer, cfg.JWT.TTL)

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string, value *string) {
		if *value != "" {
			return
		}
		fmt.Printf("Enter %s: ", label)
		input, _ := reader.ReadString('\n')
		*value = strings.TrimSpace(input)
	}
	prompt("user ID", userID)
	prompt("email", email)

	if *userID == "" || *email == "" {
		_ = log.Error("❌ User ID and email are required", fmt.Errorf("missing identity"))
		os.Exit(1)
	}

	token, err := issuer.Issue(authz.Identity{UserID: *userID, Email: *email, Name: *name}, nil)
	if err != nil {
		_ = log.Error("❌ Failed to sign token", err)
		os.Exit(1)
	}

	log.Success("✅ Token for %s valid for %s", *email, cfg.JWT.TTL)
	fmt.Println(token)
}
