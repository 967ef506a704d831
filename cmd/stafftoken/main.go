// Команда stafftoken выпускает JWT сотрудника для обращения к API кассы.
// Регистрация сотрудников ведется во внешней системе, здесь только подпись токена общим секретом.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fsdevblog/groph-pos/internal/logger"
	"github.com/fsdevblog/groph-pos/internal/transport/api/tokens"
)

func main() {
	var (
		id     int64
		expire time.Duration
	)
	flag.Int64Var(&id, "id", 1, "Employee id (token subject)")
	flag.DurationVar(&expire, "e", 12*time.Hour, "Token lifetime") //nolint:mnd
	flag.Parse()

	l := logger.New(os.Stderr)
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		l.Fatal("JWT_SECRET is not set")
	}

	token, err := tokens.GenerateStaffJWT(id, expire, []byte(secret))
	if err != nil {
		l.WithError(err).Fatal("generate token")
	}
	fmt.Println(token) //nolint:forbidigo
}
