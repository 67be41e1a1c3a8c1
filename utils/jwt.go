package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInactiveAccount возвращается для токена неактивного пользователя
var ErrInactiveAccount = errors.New("account is not active")

// Claims представляет структуру JWT токена
type Claims struct {
	UserID     uint   `json:"user_id"`
	CustomerID uint   `json:"customer_id"`
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	// Получаем секретный ключ из переменной окружения или используем дефолтный
	secretKey := os.Getenv("JWT_SECRET")
	if secretKey == "" {
		secretKey = "locatrack-secret-key-change-in-production"
	}
	return []byte(secretKey)
}

// GenerateJWT создает JWT токен. Выдача токенов выполняется внешним сервисом,
// функция используется в тестах и служебных скриптах
func GenerateJWT(userID, customerID uint, role string, isActive bool) (string, error) {
	claims := &Claims{
		UserID:     userID,
		CustomerID: customerID,
		Role:       role,
		IsActive:   isActive,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ValidateJWT проверяет и парсит JWT токен
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем метод подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret(), nil
	}, jwt.WithLeeway(5*time.Minute))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.CustomerID == 0 {
		return nil, jwt.ErrTokenMalformed
	}
	if !claims.IsActive {
		return nil, ErrInactiveAccount
	}
	return claims, nil
}

// bearerToken извлекает токен из заголовка Authorization или параметра token (для websocket)
func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return ""
		}
		return tokenParts[1]
	}
	return c.Query("token")
}

// AuthMiddleware middleware для проверки JWT токена
func AuthMiddleware(c *fiber.Ctx) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "No valid authorization token provided",
		})
	}

	claims, err := ValidateJWT(tokenString)
	if err != nil {
		message := "Invalid or expired token"
		if errors.Is(err, ErrInactiveAccount) {
			message = "User account is not active"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}

	// Сохраняем информацию о пользователе в контексте
	c.Locals("user_id", claims.UserID)
	c.Locals("tenant_id", claims.CustomerID)
	c.Locals("role", claims.Role)

	return c.Next()
}

// TenantID возвращает идентификатор клиента, установленный AuthMiddleware
func TenantID(c *fiber.Ctx) uint {
	id, _ := c.Locals("tenant_id").(uint)
	return id
}
