package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
	"github.com/mmeshcher/support-me/internal/storage"
	"github.com/mmeshcher/support-me/internal/validation"
)

// noUser подставляется вместо идентификатора, когда исключать из проверки некого.
var noUser = uuid.Nil.String()

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.ErrInvalidInput
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register регистрирует пользователя. Первый пользователь становится администратором,
// остальные получают покупателя в платёжном шлюзе и письмо для подтверждения email.
func (s *Service) Register(ctx context.Context, form validation.RegisterForm, picture *multipart.FileHeader) (*model.User, error) {
	taken, err := s.repo.UsernameOrEmailTaken(ctx, noUser, form.Username, form.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ErrUserExists
	}

	if err := storage.Validate(storage.ProfilePicture, picture); err != nil {
		return nil, err
	}

	hash, err := hashPassword(form.Password)
	if err != nil {
		return nil, err
	}

	stored, err := s.files.Save(storage.ProfilePicture, form.Username, picture)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, model.NewUser{
		FullName:          form.FullName,
		Username:          form.Username,
		Email:             form.Email,
		PasswordHash:      hash,
		Bio:               form.Bio,
		ProfilePicture:    stored,
		VerificationToken: uuid.NewString(),
	})
	if err != nil {
		s.deleteFile(stored)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrUserExists
		}
		return nil, err
	}

	if user.Role == model.RoleAdmin {
		s.logger.Info("admin account created", zap.String("user_id", user.ID))
		return user, nil
	}

	if _, err := s.ensureCustomer(ctx, user); err != nil {
		// Покупатель будет создан повторно при первой оплате.
		s.logger.Warn("stripe customer not created on registration", zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := s.mailer.SendVerification(ctx, user.Email, user.VerificationToken); err != nil {
		s.logger.Error("failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

// ensureCustomer возвращает покупателя пользователя в платёжном шлюзе, создавая его при необходимости.
func (s *Service) ensureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.CustomerID != nil && *user.CustomerID != "" {
		return *user.CustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, user.ID, user.FullName, user.Email)
	if err != nil {
		return "", s.gatewayError("create customer failed", err, zap.String("user_id", user.ID))
	}
	if err := s.repo.SetCustomerID(ctx, user.ID, customerID); err != nil {
		return "", err
	}
	user.CustomerID = &customerID
	return customerID, nil
}

// VerifyEmail подтверждает email по токену из письма.
func (s *Service) VerifyEmail(ctx context.Context, form validation.VerifyEmailForm) error {
	user, err := s.repo.GetUserByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrUserUnknownEmail
		}
		return err
	}

	if user.IsVerified {
		return apperr.ErrAlreadyVerified
	}
	if subtle.ConstantTimeCompare([]byte(user.VerificationToken), []byte(form.VerificationToken)) != 1 {
		return apperr.ErrWrongVerification
	}

	return s.repo.MarkVerified(ctx, user.ID)
}

// Login проверяет email и пароль и возвращает пользователя.
func (s *Service) Login(ctx context.Context, form validation.LoginForm) (*model.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		return nil, apperr.ErrWrongPassword
	}
	if !user.IsVerified {
		return nil, apperr.ErrNotVerified
	}

	return user, nil
}
