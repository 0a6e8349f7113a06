package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"motoshop/models"
	"motoshop/mongodb"
	"motoshop/utils"
)

// UserStore is the authoritative account record, backed by the
// document database.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*mongodb.UserDoc, error)
	CreateUser(ctx context.Context, user *mongodb.UserDoc) (string, error)
	StampLastLogin(ctx context.Context, userID primitive.ObjectID) error
}

type AuthController struct {
	Users     UserStore
	JWTSecret string
}

func NewAuthController(users UserStore, jwtSecret string) *AuthController {
	return &AuthController{Users: users, JWTSecret: jwtSecret}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(req.Email)

	if _, err := ac.Users.FindUserByEmail(ctx, email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
		return
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Printf("Registration error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during registration"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during registration"})
		return
	}

	userID, err := ac.Users.CreateUser(ctx, &mongodb.UserDoc{
		Email:    email,
		Password: string(hash),
		Role:     models.RoleCustomer,
	})
	if err != nil {
		// The unique index closes the check-then-insert window.
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
			return
		}
		log.Printf("Registration error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during registration"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  userID,
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	ctx := c.Request.Context()

	user, err := ac.Users.FindUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}

	token, err := utils.GenerateToken(ac.JWTSecret, user.ID.Hex(), user.Role)
	if err != nil {
		log.Printf("Login error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during login"})
		return
	}

	if err := ac.Users.StampLastLogin(ctx, user.ID); err != nil {
		log.Printf("Failed to stamp last login for %s: %v", user.Email, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"role":    user.Role,
		"userId":  user.ID.Hex(),
	})
}
