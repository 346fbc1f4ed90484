package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"blog-service/internal/models"
	"blog-service/internal/repository/postgres"
	"blog-service/internal/search"
	"blog-service/internal/token"
)

var errBoom = errors.New("boom")

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	err     error
	created []*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		f.byID[u.UserID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return postgres.ErrDuplicateEmail
		}
	}
	f.byID[u.UserID] = u
	f.created = append(f.created, u)
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func (f *fakeUsers) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email && u.UserID != exceptID {
			return true, nil
		}
	}
	return false, f.err
}

func (f *fakeUsers) UsernameTaken(_ context.Context, username, exceptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username && u.UserID != exceptID {
			return true, nil
		}
	}
	return false, f.err
}

func (f *fakeUsers) SetLoginStatus(_ context.Context, id string, v bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return false, f.err
	}
	u.LoginStatus = v
	return true, f.err
}

func (f *fakeUsers) SetBlockStatus(_ context.Context, id string, v bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return false, f.err
	}
	u.BlockStatus = v
	return true, f.err
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id, username, email, image string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	u.Username, u.Email = username, email
	if image != "" {
		u.Image = image
	}
	return true, nil
}

type fakeBlogs struct {
	mu    sync.Mutex
	blogs map[string]*models.Blog
	err   error
}

func newFakeBlogs(blogs ...*models.Blog) *fakeBlogs {
	f := &fakeBlogs{blogs: map[string]*models.Blog{}}
	for _, b := range blogs {
		f.blogs[b.BlogID] = b
	}
	return f
}

func (f *fakeBlogs) Create(_ context.Context, b *models.Blog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.blogs[b.BlogID] = b
	return nil
}

func (f *fakeBlogs) GetByID(_ context.Context, id string) (*models.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.blogs[id]
	if !ok || b.DeleteStatus {
		return nil, postgres.ErrBlogNotFound
	}
	return b, nil
}

func (f *fakeBlogs) Summaries(context.Context) ([]models.BlogSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.BlogSummary{}
	for _, b := range f.blogs {
		if !b.DeleteStatus {
			out = append(out, models.BlogSummary{BlogID: b.BlogID, Photo: b.Photo, Description: b.Description})
		}
	}
	return out, f.err
}

func (f *fakeBlogs) Feed(ctx context.Context) ([]models.BlogWithAuthor, error) {
	ids := []string{}
	f.mu.Lock()
	for id := range f.blogs {
		ids = append(ids, id)
	}
	f.mu.Unlock()
	return f.FeedByIDs(ctx, ids)
}

func (f *fakeBlogs) FeedByIDs(_ context.Context, ids []string) ([]models.BlogWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.BlogWithAuthor{}
	// Reverse order so callers cannot rely on it.
	for i := len(ids) - 1; i >= 0; i-- {
		b, ok := f.blogs[ids[i]]
		if !ok || b.DeleteStatus {
			continue
		}
		out = append(out, models.BlogWithAuthor{
			BlogID: b.BlogID, Description: b.Description, UserID: b.UserID,
			Likes: b.Likes, Dislikes: b.Dislikes, LikeCount: len(b.Likes), DislikeCount: len(b.Dislikes),
		})
	}
	return out, nil
}

func (f *fakeBlogs) Update(_ context.Context, id, owner, description, photo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok || b.UserID != owner || b.DeleteStatus {
		return false, f.err
	}
	b.Description = description
	if photo != "" {
		b.Photo = photo
	}
	return true, f.err
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func remove(xs []string, x string) []string {
	out := []string{}
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

func (f *fakeBlogs) React(_ context.Context, id, userID string, r models.Reaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok || b.DeleteStatus {
		return false, postgres.ErrBlogNotFound
	}
	if r == models.ReactionLike {
		if contains(b.Likes, userID) {
			return false, nil
		}
		b.Likes = append(b.Likes, userID)
		b.Dislikes = remove(b.Dislikes, userID)
		return true, nil
	}
	if contains(b.Dislikes, userID) {
		return false, nil
	}
	b.Dislikes = append(b.Dislikes, userID)
	b.Likes = remove(b.Likes, userID)
	return true, nil
}

func (f *fakeBlogs) AddComment(_ context.Context, id string, c models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok || b.DeleteStatus {
		return postgres.ErrBlogNotFound
	}
	b.Comments = append(b.Comments, c)
	return nil
}

func (f *fakeBlogs) SoftDelete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok || b.DeleteStatus {
		return false, f.err
	}
	b.DeleteStatus = true
	return true, f.err
}

type fakeOTP struct {
	verified  map[string]bool
	requested []string
	resent    []string
	verifyErr error
	err       error
}

func newFakeOTP() *fakeOTP { return &fakeOTP{verified: map[string]bool{}} }

func (f *fakeOTP) RequestCode(_ context.Context, email string) error {
	f.requested = append(f.requested, email)
	return f.err
}

func (f *fakeOTP) ResendCode(_ context.Context, email string) error {
	f.resent = append(f.resent, email)
	return f.err
}

func (f *fakeOTP) Verify(_ context.Context, email, _ string) error {
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verified[email] = true
	return nil
}

func (f *fakeOTP) Verified(_ context.Context, email string) (bool, error) {
	return f.verified[email], f.err
}

// fakeCreds stores "hashed:" + plaintext.
type fakeCreds struct{}

func (fakeCreds) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (fakeCreds) Verify(p, d string) bool       { return d == "hashed:"+p }

type fakeTokens struct {
	issued []token.Payload
}

func (f *fakeTokens) IssueAccess(p token.Payload) (string, error) {
	f.issued = append(f.issued, p)
	return "access-" + p.Role(), nil
}

func (f *fakeTokens) IssuePair(p token.Payload) (string, string, error) {
	f.issued = append(f.issued, p)
	return "access-" + p.Role(), "refresh-" + p.Role(), nil
}

type fakeObjects struct {
	puts []string
	err  error
}

func (f *fakeObjects) Put(_ context.Context, prefix, filename, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, body)
	key := prefix + "/" + filename
	f.puts = append(f.puts, key)
	return "https://cdn.example.com/" + key, nil
}

type fakeIndex struct {
	docs    map[string]search.BlogDocument
	deleted []string
	results []string
	err     error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[string]search.BlogDocument{}} }

func (f *fakeIndex) Index(_ context.Context, doc search.BlogDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs[doc.BlogID] = doc
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeIndex) Search(context.Context, string, int) ([]string, error) {
	return f.results, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evt models.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeAudit struct {
	events []models.AuthEvent
}

func (f *fakeAudit) Record(_ context.Context, evt models.AuthEvent) {
	f.events = append(f.events, evt)
}

func (f *fakeAudit) last() models.AuthEvent {
	return f.events[len(f.events)-1]
}

func longDescription() string {
	return strings.TrimSpace(strings.Repeat("The mountain trail was quiet, green and cool. ", 7))
}

func upload(name string) *Upload {
	return &Upload{Filename: name, Size: 4, Body: strings.NewReader("data")}
}
