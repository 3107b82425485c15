package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/config"
	"github.com/coursiva/enroll-gateway/internal/service"
)

// mint-token prints a signed JWT for local development and e2e runs,
// using the same JWT_SECRET the gateway validates with.
func main() {
	userFlag := flag.String("user", "", "user UUID (random if empty)")
	nameFlag := flag.String("name", "Dev Student", "display name embedded in the token")
	roleFlag := flag.String("role", "student", "token role: student or instructor")
	flag.Parse()

	userID := uuid.New()
	if *userFlag != "" {
		parsed, err := uuid.Parse(*userFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -user: %v\n", err)
			os.Exit(1)
		}
		userID = parsed
	}

	var tokenType service.TokenType
	switch *roleFlag {
	case "student":
		tokenType = service.TokenTypeStudent
	case "instructor":
		tokenType = service.TokenTypeInstructor
	default:
		fmt.Fprintf(os.Stderr, "invalid -role %q: want student or instructor\n", *roleFlag)
		os.Exit(1)
	}

	cfg := config.Load()
	auth := service.NewAuthService(cfg, nil)

	token, err := auth.GenerateToken(userID, *nameFlag, tokenType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("user: %s\nrole: %s\ntoken:\n%s\n", userID, tokenType, token)
}
