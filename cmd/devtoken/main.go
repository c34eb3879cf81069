// devtoken выпускает access токен для ручной проверки API.
// Сервер сам токены не выдает, в проде их подписывает внешний сервис авторизации тем же JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"carousel-server/pkg/middleware"
	"carousel-server/pkg/utils"

	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "User ID to put into the token subject")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	roles := flag.String("roles", "", "Comma separated roles")
	flag.Parse()

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
		}
	}

	secret, ok := utils.SecretOrValue(os.Getenv("JWT_SECRET"), "jwt_secret")
	if !ok {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	token, err := middleware.IssueToken(*subject, secret, *ttl, roleList...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
