package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
	"veeniu/src/config"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/models"
	"veeniu/src/types"
	"veeniu/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func generateJWT(user *models.User) (string, error) {
	claims := types.Claims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func guestAuthRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/auth/register", func(ctx *gin.Context) {
			var body types.RegisterRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var existing models.User
			err := gdb.Where(&models.User{Email: body.Email}).First(&existing).Error
			if err == nil {
				respondError(ctx, types.NewApiError(types.ERR_VALIDATION, "email already exist"))
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(ctx, err)
				return
			}

			var referrer *models.User
			if body.ReferralCode != "" {
				var r models.User
				err := gdb.Where(&models.User{ReferralCode: body.ReferralCode}).First(&r).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						respondError(ctx, types.NewApiError(types.ERR_VALIDATION, "invalid referral code"))
						return
					}
					respondError(ctx, err)
					return
				}
				referrer = &r
			}

			hashed, err := utils.HashPassword(body.Password)
			if err != nil {
				respondError(ctx, err)
				return
			}
			role := body.Role
			if role == "" {
				role = types.ROLE_CUSTOMER
			}
			user := models.User{
				Name:         body.Name,
				Email:        body.Email,
				Password:     hashed,
				Role:         role,
				ReferralCode: utils.RandomCode(8),
			}
			if referrer != nil {
				user.ReferredByID = &referrer.ID
			}
			err = gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
				if referrer == nil {
					return nil
				}
				expiry := time.Now().Add(30 * 24 * time.Hour)
				couponCode := fmt.Sprintf("REF-%s", utils.RandomCode(8))
				referrerReward := models.Reward{
					UserID:        referrer.ID,
					TriggeredByID: &user.ID,
					CouponCode:    &couponCode,
					Point:         0,
					ExpiresAt:     &expiry,
				}
				if err := tx.Create(&referrerReward).Error; err != nil {
					return err
				}
				welcome := models.Reward{
					UserID:        user.ID,
					TriggeredByID: &referrer.ID,
					Point:         config.WelcomePoints(),
					ExpiresAt:     &expiry,
				}
				if err := tx.Create(&welcome).Error; err != nil {
					return err
				}
				return nil
			})
			if err != nil {
				respondError(ctx, err)
				return
			}

			go func() {
				input := &lib.SendMailInput{
					From:     "no-reply@veeniu.com",
					FromName: "Veeniu",
					To:       []string{user.Email},
					Subject:  "Welcome new user",
					Body:     fmt.Sprintf("Welcome to Veeniu, %s!", user.Name),
				}
				if err := lib.SendMail(input); err != nil {
					log.Printf("Error sending welcome mail to %s: %s\n", user.Email, err.Error())
				}
			}()

			ctx.JSON(http.StatusCreated, gin.H{"message": "register user success"})
		}).
		POST("/auth/login", func(ctx *gin.Context) {
			var body types.LoginRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var user models.User
			err := gdb.Where(&models.User{Email: body.Email}).First(&user).Error
			if err != nil {
				respondError(ctx, types.NewApiError(types.ERR_VALIDATION, "Invalid credentials"))
				return
			}
			if !utils.ComparePassword(user.Password, body.Password) {
				respondError(ctx, types.NewApiError(types.ERR_VALIDATION, "Invalid credentials"))
				return
			}
			token, err := generateJWT(&user)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{
				"id":            user.ID,
				"name":          user.Name,
				"email":         user.Email,
				"role":          user.Role,
				"referral_code": user.ReferralCode,
				"access_token":  token,
			}})
		})
	return g
}
