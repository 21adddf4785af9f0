package middleware

import "github.com/golang-jwt/jwt/v5"

func jwtSubject(sub, jti string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub, ID: jti}
}
