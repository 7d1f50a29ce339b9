package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridepool/cms/internal/auth"
	"ridepool/cms/internal/authpw"
	"ridepool/cms/internal/config"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/defaults"
	"ridepool/cms/internal/export"
	"ridepool/cms/internal/history"
	"ridepool/cms/internal/lock"
	"ridepool/cms/internal/persist"
	"ridepool/cms/internal/rbac"
	"ridepool/cms/internal/search"
	"ridepool/cms/internal/store"
	"ridepool/cms/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type refreshStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type dataStore interface {
	persist.DocumentStore
	refreshStore
	authpw.UserStore
	ListUsers(context.Context) ([]store.User, error)
	SetUserRole(context.Context, string, string) error
	DeactivateUser(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Service. Store is required; a nil
// Sessions keeps refresh sessions in Store, a nil Locker guards bulk saves
// in process, and nil History, Search or Export disable those features.
type Deps struct {
	Store    dataStore
	Sessions refreshStore
	Locker   lock.Locker
	History  *history.Service
	Search   *search.Service
	Export   *export.Service
	Logger   *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  refreshStore
	passwords *authpw.Service
	history   *history.Service
	search    *search.Service
	export    *export.Service
	log       *zap.Logger
	now       func() time.Time

	blogs       *managed[content.BlogPost]
	faq         *managed[content.FAQ]
	features    *managed[content.Feature]
	howItWorks  *managed[content.HowItWorksStep]
	instagram   *managed[content.InstagramPost]
	collections map[string]contentCollection

	settings    *singleton[content.SiteSettings]
	images      *singleton[content.ImageConfig]
	safety      *singleton[content.SafetyContent]
	environment *singleton[content.EnvironmentContent]
	legal       map[content.LegalType]*singleton[content.LegalPage]
}

func New(cfg config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = deps.Store
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  sessions,
		passwords: authpw.NewService(deps.Store),
		history:   deps.History,
		search:    deps.Search,
		export:    deps.Export,
		log:       logger,
		now:       time.Now,
		legal:     make(map[content.LegalType]*singleton[content.LegalPage]),
	}

	s.blogs = newManaged(s, locker, CollectionBlogs, "post", content.BlogPost{Status: content.StatusDraft}, defaults.BlogPosts)
	s.faq = newManaged(s, locker, CollectionFAQ, "faq", content.FAQ{Visible: true}, defaults.FAQs)
	s.features = newManaged(s, locker, CollectionFeatures, "feat", content.Feature{Visible: true}, defaults.Features)
	s.howItWorks = newManaged(s, locker, CollectionHowItWorks, "step", content.HowItWorksStep{}, defaults.HowItWorks)
	s.instagram = newManaged(s, locker, CollectionInstagram, "ig", content.InstagramPost{Visible: true}, defaults.Instagram)
	s.collections = map[string]contentCollection{
		CollectionBlogs:      s.blogs,
		CollectionFAQ:        s.faq,
		CollectionFeatures:   s.features,
		CollectionHowItWorks: s.howItWorks,
		CollectionInstagram:  s.instagram,
	}
	if s.search != nil {
		s.blogs.onSaved = func(posts []content.BlogPost) {
			for _, p := range posts {
				s.search.IndexPost(search.NewPostRecord(p))
			}
		}
		s.blogs.onRemoved = func(ids []string) {
			for _, id := range ids {
				s.search.DeletePost(id)
			}
		}
		s.faq.onSaved = func(faqs []content.FAQ) {
			for _, f := range faqs {
				s.search.IndexFAQ(search.NewFAQRecord(f))
			}
		}
		s.faq.onRemoved = func(ids []string) {
			for _, id := range ids {
				s.search.DeleteFAQ(id)
			}
		}
	}

	s.settings = newSingleton(s, "settings", "settings", "config", defaults.Settings, decodeDocument[content.SiteSettings], validateSettings)
	s.images = newSingleton(s, "images", "images", "config", defaults.Images, decodeDocument[content.ImageConfig], validateImages)
	s.safety = newSingleton(s, "safety", "content", "safety", defaults.Safety, decodeDocument[content.SafetyContent], validateSafety)
	s.environment = newSingleton(s, "environment", "content", "environment", defaults.Environment, content.DecodeEnvironment, nil)
	for _, t := range content.LegalTypes {
		s.legal[t] = newSingleton(s, "legal "+string(t), "legal", string(t),
			func() content.LegalPage { return defaults.Legal(t) },
			decodeDocument[content.LegalPage], validateLegal)
	}
	return s
}

func newManaged[T validRecord[T]](s *Service, locker lock.Locker, name, idPrefix string, blank T, fallback func() []T) *managed[T] {
	return &managed[T]{
		name:     name,
		idPrefix: idPrefix,
		blank:    blank,
		sync: persist.New(persist.Options[T]{
			Store:    s.store,
			Path:     s.dataPath(name),
			Defaults: fallback,
			Locker:   locker,
			Logger:   s.log,
		}),
		history: s.history,
		log:     s.log,
	}
}

func newSingleton[T any](s *Service, name, group, id string, fallback func() T, decode func(json.RawMessage) (T, error), validate func(T) (T, error)) *singleton[T] {
	return &singleton[T]{
		name:       name,
		collection: s.dataPath(group),
		id:         id,
		defaults:   fallback,
		decode:     decode,
		validate:   validate,
		store:      s.store,
		history:    s.history,
		log:        s.log,
	}
}

// DataPath maps a collection or singleton group to its store path,
// <namespace>/data/<name>. An empty namespace means "site".
func DataPath(namespace, name string) string {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		namespace = "site"
	}
	return namespace + "/data/" + name
}

func (s *Service) dataPath(name string) string {
	return DataPath(s.cfg.Namespace, name)
}

// Bootstrap fills the search index from the current content.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	posts := s.blogs.Live(ctx)
	faqs := s.faq.Live(ctx)
	postRecords := make([]search.PostRecord, 0, len(posts))
	for _, p := range posts {
		postRecords = append(postRecords, search.NewPostRecord(p))
	}
	faqRecords := make([]search.FAQRecord, 0, len(faqs))
	for _, f := range faqs {
		faqRecords = append(faqRecords, search.NewFAQRecord(f))
	}
	s.search.ReindexAll(postRecords, faqRecords)
	s.log.Info("search index rebuilt", zap.Int("posts", len(postRecords)), zap.Int("faqs", len(faqRecords)))
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token. The user is reloaded so role changes and
// deactivation take effect immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	ref, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, ref.ID)
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil {
		return Session{}, authpw.ErrDeactivated
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID("jti")
	claims := auth.NewClaims(user.ID, user.DisplayName, user.Role, jti, s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			s.log.Warn("revoke access token", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.log.Warn("revoke refresh session", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, session Session, current, next string) error {
	return s.passwords.ChangePassword(ctx, session.UserID, current, next)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Collection looks up an admin collection by its API name.
func (s *Service) Collection(name string) (contentCollection, error) {
	coll, ok := s.collections[name]
	if !ok {
		return nil, errUnknownCollection
	}
	return coll, nil
}

func (s *Service) legalDocument(t content.LegalType) (*singleton[content.LegalPage], error) {
	doc, ok := s.legal[t]
	if !ok {
		return nil, errUnknownLegalType
	}
	return doc, nil
}

// Singleton reads and writes, one pair per document.

func (s *Service) Settings(ctx context.Context) (content.SiteSettings, error) {
	return s.settings.Load(ctx)
}

func (s *Service) SaveSettings(ctx context.Context, raw json.RawMessage, actor string) (content.SiteSettings, error) {
	return s.settings.Save(ctx, raw, actor)
}

func (s *Service) Images(ctx context.Context) (content.ImageConfig, error) {
	return s.images.Load(ctx)
}

func (s *Service) SaveImages(ctx context.Context, raw json.RawMessage, actor string) (content.ImageConfig, error) {
	return s.images.Save(ctx, raw, actor)
}

func (s *Service) Safety(ctx context.Context) (content.SafetyContent, error) {
	return s.safety.Load(ctx)
}

func (s *Service) SaveSafety(ctx context.Context, raw json.RawMessage, actor string) (content.SafetyContent, error) {
	return s.safety.Save(ctx, raw, actor)
}

func (s *Service) Environment(ctx context.Context) (content.EnvironmentContent, error) {
	return s.environment.Load(ctx)
}

func (s *Service) SaveEnvironment(ctx context.Context, raw json.RawMessage, actor string) (content.EnvironmentContent, error) {
	return s.environment.Save(ctx, raw, actor)
}

func (s *Service) Legal(ctx context.Context, t content.LegalType) (content.LegalPage, error) {
	doc, err := s.legalDocument(t)
	if err != nil {
		return content.LegalPage{}, err
	}
	return doc.Load(ctx)
}

func (s *Service) SaveLegal(ctx context.Context, t content.LegalType, raw json.RawMessage, actor string) (content.LegalPage, error) {
	doc, err := s.legalDocument(t)
	if err != nil {
		return content.LegalPage{}, err
	}
	return doc.Save(ctx, raw, actor)
}

// Search runs an admin or public query. Without a search backend it returns
// no results.
func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// Export renders a blog post (by id) or a legal page (by type).
func (s *Service) Export(ctx context.Context, kind export.Kind, id string, format export.Format) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	settings, _ := s.settings.Load(ctx)
	switch kind {
	case export.KindBlog:
		for _, post := range s.blogs.Live(ctx) {
			if post.ID == id {
				return s.export.ExportPost(ctx, post, settings.SiteName, format)
			}
		}
		return nil, fmt.Errorf("post %s: %w", id, store.ErrNotFound)
	case export.KindLegal:
		legalType, ok := content.ParseLegalType(id)
		if !ok {
			return nil, errUnknownLegalType
		}
		page, _ := s.Legal(ctx, legalType)
		return s.export.ExportLegal(ctx, legalType, page, settings.SiteName, format)
	default:
		return nil, &content.ValidationError{Field: "kind", Reason: "kind must be blog or legal"}
	}
}
