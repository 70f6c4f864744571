package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// AuthResult is returned by every login path.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserService handles accounts and profiles.
type UserService struct {
	store    *repositories.Store
	issuer   *auth.Issuer
	firebase auth.TokenVerifier
	cascade  *CascadeDeletionEngine
	media    media.Service
	log      logrus.FieldLogger
	cost     int
}

// NewUserService creates a UserService.
func NewUserService(store *repositories.Store, issuer *auth.Issuer, firebase auth.TokenVerifier, cascade *CascadeDeletionEngine, media media.Service, log logrus.FieldLogger) *UserService {
	return &UserService{
		store:    store,
		issuer:   issuer,
		firebase: firebase,
		cascade:  cascade,
		media:    media,
		log:      log,
		cost:     bcrypt.DefaultCost,
	}
}

func (s *UserService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	return string(h), err
}

func (s *UserService) login(user *models.User) (*AuthResult, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Register creates a local account and logs it in.
func (s *UserService) Register(ctx context.Context, req models.RegisterUserRequest) (*AuthResult, error) {
	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:        primitive.NewObjectID().Hex(),
		Username:  req.Username,
		Email:     strings.ToLower(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  hashed,
	}
	if err := s.store.Users.CreateUser(ctx, user); err != nil {
		if apperr.IsDuplicateKey(err) {
			return nil, apperr.Conflict("username or email already taken")
		}
		return nil, err
	}
	return s.login(user)
}

// Login checks an email or username against its password.
func (s *UserService) Login(ctx context.Context, req models.LoginUserRequest) (*AuthResult, error) {
	user, err := s.store.Users.GetUserByLogin(ctx, req.Login)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.BadRequest("invalid login or password")
	}
	if err != nil {
		return nil, err
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, apperr.BadRequest("invalid login or password")
	}
	return s.login(user)
}

// LoginWithFirebase exchanges a Firebase ID token for a local token. An
// unknown Firebase user is linked to the account with the same email, or
// gets a new account.
func (s *UserService) LoginWithFirebase(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.firebase == nil {
		return nil, apperr.BadRequest("firebase login is not enabled")
	}
	token, err := s.firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.log.WithError(err).Debug("firebase token rejected")
		return nil, apperr.Unauthenticated()
	}
	uid := token.UID

	user, err := s.store.Users.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		return s.login(user)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	email, _ := token.Claims["email"].(string)
	email = strings.ToLower(email)
	if email == "" {
		return nil, apperr.BadUserInput("the firebase account has no email")
	}
	user, err = s.store.Users.GetUserByLogin(ctx, email)
	switch {
	case err == nil:
		// only a verified email may claim an account that has no firebase link yet
		verified, _ := token.Claims["email_verified"].(bool)
		if !verified || (user.FirebaseUID != nil && *user.FirebaseUID != "") {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		user.FirebaseUID = &uid
		if err := s.store.Users.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return s.login(user)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	name, _ := token.Claims["name"].(string)
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	id := primitive.NewObjectID().Hex()
	user = &models.User{
		ID:          id,
		Username:    usernameFrom(email, id),
		Email:       email,
		FirstName:   first,
		LastName:    strings.TrimSpace(last),
		FirebaseUID: &uid,
	}
	if err := s.store.Users.CreateUser(ctx, user); err != nil {
		if apperr.IsDuplicateKey(err) {
			return nil, apperr.Conflict("username or email already taken")
		}
		return nil, err
	}
	return s.login(user)
}

// usernameFrom derives a unique alphanumeric username from an email.
func usernameFrom(email, id string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
		if b.Len() == 40 {
			break
		}
	}
	if b.Len() == 0 {
		b.WriteString("user")
	}
	return b.String() + id[len(id)-8:]
}

// ChangeUserData updates the caller's account. A new password needs the old one.
func (s *UserService) ChangeUserData(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "user not found")
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Email != nil {
		user.Email = strings.ToLower(*req.Email)
	}
	if req.Password != nil {
		if user.Password != "" && bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)) != nil {
			return nil, apperr.BadRequest("the old password is incorrect")
		}
		if user.Password, err = s.hash(*req.Password); err != nil {
			return nil, err
		}
	}
	if err := s.store.Users.UpdateUser(ctx, user); err != nil {
		if apperr.IsDuplicateKey(err) {
			return nil, apperr.Conflict("username or email already taken")
		}
		return nil, missing(err, "user not found")
	}
	return user, nil
}

// ChangePicture replaces the caller's profile or cover picture.
func (s *UserService) ChangePicture(ctx context.Context, userID string, kind models.PictureKind, m *models.Media) (*models.User, error) {
	if m == nil || m.PublicID == "" {
		return nil, apperr.BadUserInput("a picture is required")
	}
	if err := ownMedia(userID, *m); err != nil {
		return nil, err
	}
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "user not found")
	}
	var old *models.Media
	if kind == models.PictureCover {
		old, user.CoverPicture = user.CoverPicture, m
	} else {
		old, user.ProfilePicture = user.ProfilePicture, m
	}
	if err := s.store.Users.UpdateUser(ctx, user); err != nil {
		return nil, missing(err, "user not found")
	}
	if old != nil && old.PublicID != "" && old.PublicID != m.PublicID && s.media != nil {
		if err := s.media.Delete(ctx, []string{old.PublicID}); err != nil {
			s.log.WithError(err).WithField("media", old.PublicID).Warn("deleting replaced picture")
		}
	}
	return user, nil
}

// GetProfile returns a user with their relation lists. Pending requests are
// only listed on the caller's own profile.
func (s *UserService) GetProfile(ctx context.Context, viewer, userID string) (*models.Profile, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "user not found")
	}
	p := &models.Profile{User: *user}
	rel := s.store.Relations

	g, gctx := errgroup.WithContext(ctx)
	objects := func(dst *[]string, kind models.RelationKind) {
		g.Go(func() (err error) {
			*dst, err = rel.Objects(gctx, userID, kind)
			return
		})
	}
	objects(&p.FriendsList, models.RelFriend)
	objects(&p.OwnedPages, models.RelPageOwner)
	objects(&p.AdminPages, models.RelPageAdmin)
	objects(&p.FollowedPages, models.RelPageFollower)
	objects(&p.OwnedGroups, models.RelGroupOwner)
	objects(&p.AdminGroups, models.RelGroupAdmin)
	objects(&p.JoinedGroups, models.RelGroupMember)
	if viewer == userID {
		objects(&p.SentRequests, models.RelFriendRequest)
		g.Go(func() (err error) {
			p.FriendsRequests, err = rel.Subjects(gctx, models.RelFriendRequest, userID)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if p.FriendsRequests == nil {
		p.FriendsRequests = []string{}
	}
	if p.SentRequests == nil {
		p.SentRequests = []string{}
	}
	return p, nil
}

// DeleteUser deletes the caller's account after checking their password.
func (s *UserService) DeleteUser(ctx context.Context, userID, password string) (*CascadeReport, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "user not found")
	}
	if user.Password != "" && bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperr.BadRequest("the password is incorrect")
	}
	return s.cascade.DeleteUser(ctx, userID)
}
