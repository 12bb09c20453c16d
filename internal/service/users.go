package service

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
	"github.com/mmeshcher/support-me/internal/storage"
	"github.com/mmeshcher/support-me/internal/validation"
)

// CurrentUser возвращает пользователя из токена доступа.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// ListUsers возвращает страницу пользователей без администраторов.
func (s *Service) ListUsers(ctx context.Context, f model.UserFilter) (model.Result[model.User], error) {
	users, total, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return model.Result[model.User]{}, err
	}
	return model.NewResult(users, total, f.Page), nil
}

// UpdateProfile обновляет профиль. Переданные картинки заменяют прежние, старые файлы удаляются.
func (s *Service) UpdateProfile(ctx context.Context, userID string, form validation.UpdateUserForm, profile, cover *multipart.FileHeader) (*model.User, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Username != form.Username || user.Email != form.Email {
		taken, err := s.repo.UsernameOrEmailTaken(ctx, userID, form.Username, form.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.ErrUserTaken
		}
	}

	if profile != nil {
		if err := storage.Validate(storage.ProfilePicture, profile); err != nil {
			return nil, err
		}
	}
	if cover != nil {
		if err := storage.Validate(storage.CoverPicture, cover); err != nil {
			return nil, err
		}
	}

	upd := model.ProfileUpdate{
		FullName: form.FullName,
		Username: form.Username,
		Email:    form.Email,
		Bio:      form.Bio,
	}
	if profile != nil {
		if upd.ProfilePicture, err = s.files.Save(storage.ProfilePicture, form.Username, profile); err != nil {
			return nil, err
		}
	}
	if cover != nil {
		if upd.CoverPicture, err = s.files.Save(storage.CoverPicture, form.Username, cover); err != nil {
			s.deleteFile(upd.ProfilePicture)
			return nil, err
		}
	}

	updated, err := s.repo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		s.deleteFile(upd.ProfilePicture)
		s.deleteFile(upd.CoverPicture)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrUserTaken
		}
		return nil, err
	}

	if upd.ProfilePicture != "" {
		s.deleteFile(user.ProfilePicture)
	}
	if upd.CoverPicture != "" {
		s.deleteFile(user.CoverPicture)
	}

	// Владелец встроен в ответы каталога.
	s.invalidateCatalog(ctx)

	return updated, nil
}
