package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/connecta/internal/testkit/fakeapi"
)

func TestLogin_FeedPagingAndToggles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	require.True(t, h.app.isLoggedIn())

	require.NoError(t, h.app.Feed(ctx))
	out := h.out.String()
	assert.Contains(t, out, "feed: posts 1-3 of 4+")
	assert.Contains(t, out, "#1 @bob")
	assert.Contains(t, out, "#3 @bob")
	assert.NotContains(t, out, "#4 @bob")

	h.out.Reset()
	require.NoError(t, h.app.More(ctx))
	assert.Contains(t, h.out.String(), "feed: posts 4-6 of 6+")

	h.out.Reset()
	require.NoError(t, h.app.More(ctx))
	assert.Contains(t, h.out.String(), "feed: posts 7-7 of 7\n")

	h.out.Reset()
	require.NoError(t, h.app.More(ctx))
	assert.Equal(t, "You're all caught up.\n", h.out.String())

	h.out.Reset()
	require.NoError(t, h.app.Like(ctx, "3"))
	assert.Equal(t, "Liked post #3 (11 likes).\n", h.out.String())
	assert.True(t, h.api.Liked(3, 7))

	h.out.Reset()
	require.NoError(t, h.app.Like(ctx, "3"))
	assert.Equal(t, "Unliked post #3 (10 likes).\n", h.out.String())
	assert.False(t, h.api.Liked(3, 7))

	h.out.Reset()
	require.NoError(t, h.app.Save(ctx, "2"))
	assert.Equal(t, "Saved post #2.\n", h.out.String())
	assert.True(t, h.api.Saved(2, 7))

	h.out.Reset()
	require.Error(t, h.app.Like(ctx, "99"))
	assert.Contains(t, h.out.String(), "Post #99 is not in a loaded feed")

	h.out.Reset()
	require.Error(t, h.app.Like(ctx, "abc"))
	assert.Contains(t, h.out.String(), `Not a valid id: "abc"`)
}

func TestLike_RollbackPrintsNotice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	require.NoError(t, h.app.Feed(ctx))
	h.out.Reset()

	h.api.FailNext("/posts/1/like/", http.StatusInternalServerError)
	require.Error(t, h.app.Like(ctx, "1"))
	assert.Equal(t, "! Failed to update like\n", h.out.String())

	p, ok := h.app.workspace().lookup(1)
	require.True(t, ok)
	assert.False(t, p.IsLiked)
	assert.Equal(t, int64(10), p.LikeCount)
	assert.False(t, h.api.Liked(1, 7))
	assert.True(t, h.app.workspace().feeds[feedHome].Snapshot().Stale)
}

func TestMore_FailureKeepsViewAndRetries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	require.NoError(t, h.app.Feed(ctx))

	h.api.FailNext("/posts/feed/", http.StatusInternalServerError)
	h.out.Reset()
	require.Error(t, h.app.More(ctx))
	out := h.out.String()
	assert.Contains(t, out, "feed: posts 4-4 of 4+")
	assert.Contains(t, out, "Type 'more' to retry.")

	h.out.Reset()
	require.NoError(t, h.app.More(ctx))
	assert.Contains(t, h.out.String(), "feed: posts 5-7 of 7\n")
}

func TestRefreshAndExplore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)

	require.NoError(t, h.app.Explore(ctx))
	assert.Contains(t, h.out.String(), "explore: posts 1-2 of 2\n")
	assert.Contains(t, h.out.String(), "#20 @bob")

	h.api.SetExplore(fakeapi.SamplePosts(30)...)
	h.out.Reset()
	require.NoError(t, h.app.Refresh(ctx))
	assert.Contains(t, h.out.String(), "explore: posts 1-1 of 1\n")
	assert.Contains(t, h.out.String(), "#30 @bob")
}

func TestShowAndUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	require.NoError(t, h.app.Feed(ctx))

	h.out.Reset()
	require.NoError(t, h.app.Show(ctx, "2"))
	assert.Contains(t, h.out.String(), "post 2")
	assert.Equal(t, 0, h.api.Requests("/posts/2/"), "loaded posts are shown from the feed")

	h.out.Reset()
	require.NoError(t, h.app.Show(ctx, "7"))
	assert.Contains(t, h.out.String(), "post 7")
	assert.Equal(t, 1, h.api.Requests("/posts/7/"))

	h.out.Reset()
	require.Error(t, h.app.Show(ctx, "404"))
	assert.Contains(t, h.out.String(), "Post #404:")

	h.out.Reset()
	require.NoError(t, h.app.User(ctx, "7"))
	assert.Contains(t, h.out.String(), "@alice")

	h.out.Reset()
	require.NoError(t, h.app.Whoami(ctx))
	assert.Contains(t, h.out.String(), "@alice")
}

func TestSessionExpiredReturnsToLoggedOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)

	h.api.ExpireAccessTokens()
	h.api.RejectRefresh(true)

	require.Error(t, h.app.Feed(ctx))
	assert.Equal(t, 1, strings.Count(h.out.String(), "Session expired. Please log in again."))
	assert.False(t, h.app.isLoggedIn())
	assert.Nil(t, h.app.workspace())

	h.out.Reset()
	require.Error(t, h.app.More(ctx))
	assert.Equal(t, "Please log in first (type 'login' or 'register').\n", h.out.String())
}

func TestRegister_LogsInNewAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stubPasswords(t, "passw0rd!", "passw0rd!")
	h.input("carol@example.com", "Carol", "carol")
	require.NoError(t, h.app.Register(ctx))

	assert.Contains(t, h.out.String(), "Welcome to Connecta, carol!")
	assert.True(t, h.app.isLoggedIn())
	assert.Equal(t, "(carol)", h.app.getStatus())
}

func TestRegister_ShowsFieldErrors(t *testing.T) {
	h := newHarness(t)

	stubPasswords(t, "short", "other")
	h.input("not-an-email", "C", "carol")
	require.Error(t, h.app.Register(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Error: ")
	assert.Contains(t, out, "  email: ")
	assert.Contains(t, out, "  password2: ")
	assert.False(t, h.app.isLoggedIn())
	assert.Zero(t, h.api.Requests("/accounts/users/register/"))
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)

	stubPasswords(t, "nope")
	h.input("alice")
	require.Error(t, h.app.Login(context.Background()))
	assert.Contains(t, h.out.String(), "Error: ")
	assert.False(t, h.app.isLoggedIn())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)

	require.NoError(t, h.app.Logout(ctx))
	assert.Equal(t, "Logged out.\n", h.out.String())
	assert.False(t, h.app.isLoggedIn())
	assert.Nil(t, h.app.workspace())
}

func TestPost_PublishesAndMarksFeedsStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	require.NoError(t, h.app.Feed(ctx))

	pic := filepath.Join(t.TempDir(), "beach.jpg")
	require.NoError(t, os.WriteFile(pic, []byte("jpeg"), 0o600))

	h.input("Sunny day", "", "Nice", pic, "", "y")
	h.out.Reset()
	require.NoError(t, h.app.Post(ctx))
	assert.Contains(t, h.out.String(), "Post published.")

	created := h.api.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "Sunny day", created[0].Caption)
	assert.Equal(t, "Nice", created[0].Location)
	assert.True(t, created[0].CommentsDisabled)
	assert.Equal(t, []string{"image"}, created[0].Types)

	assert.True(t, h.app.workspace().feeds[feedHome].Snapshot().Stale)
	assert.True(t, h.app.workspace().feeds[feedExplore].Snapshot().Stale)
}

func TestPost_ValidationFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.input("caption", "", "", "", "n")
	require.Error(t, h.app.Post(context.Background()))
	assert.Contains(t, h.out.String(), "Error: ")
	assert.Empty(t, h.api.Created())
}

func TestGuessMediaType(t *testing.T) {
	assert.Equal(t, "video", string(guessMediaType("clip.MP4")))
	assert.Equal(t, "image", string(guessMediaType("a.png")))
	assert.Equal(t, "image", string(guessMediaType("notes.txt")))
}

func TestOnlineWatcher(t *testing.T) {
	h := newHarness(t)

	h.app.checkOnline(context.Background())
	assert.Equal(t, ModeOnline, h.app.currentMode())
	assert.Contains(t, h.out.String(), "Switched to online mode")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.app.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)
		close(done)
	}()

	h.api.SetDown(true)
	require.Eventually(t, func() bool { return h.app.currentMode() == ModeOffline }, 2*time.Second, 10*time.Millisecond)

	h.api.SetDown(false)
	require.Eventually(t, func() bool { return h.app.currentMode() == ModeOnline }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.app.Status(ctx))
	assert.Equal(t, "mode: unknown\nsession: logged out\n", h.out.String())

	h.login(t)
	require.NoError(t, h.app.Feed(ctx))
	h.out.Reset()
	require.NoError(t, h.app.Status(ctx))
	assert.Equal(t, "mode: unknown\nsession: alice\nfeed: 4 loaded, more available\nexplore: 0 loaded, more available\n", h.out.String())
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "", h.app.getStatus())

	h.app.checkOnline(context.Background())
	assert.Equal(t, "(online)", h.app.getStatus())

	h.login(t)
	assert.Equal(t, "(alice online)", h.app.getStatus())
}

func TestRoot_ResumesSavedSession(t *testing.T) {
	silencePrintln(t)
	h := newHarness(t)
	h.login(t)

	app := h.newApp(t, "status\nexit\n")
	app.Root(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "Welcome to Connecta CLI")
	assert.Contains(t, out, "Resumed session #7.")
	assert.Contains(t, out, "session: #7")
	assert.Nil(t, app.workspace(), "session state is dropped on exit")
}
