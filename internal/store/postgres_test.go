package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larkin-dev/chatline/internal/models"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL and wipes
// all rows. Tests are skipped when the variable is unset so the suite stays
// runnable without a live Postgres.
func setupTestDB(t *testing.T) *Postgres {
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping store tests")
	}

	db, err := NewPostgres(connStr)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.db.Exec("DELETE FROM messages")
	require.NoError(t, err)
	_, err = db.db.Exec("DELETE FROM chat_participants")
	require.NoError(t, err)
	_, err = db.db.Exec("DELETE FROM chats")
	require.NoError(t, err)
	_, err = db.db.Exec("DELETE FROM users")
	require.NoError(t, err)

	return db
}

func mustCreateUser(t *testing.T, db *Postgres, name string) *models.User {
	user, err := db.CreateUser(context.Background(),
		name, name+"@example.com", "hashedpassword")
	require.NoError(t, err)
	return user
}

func TestCreateUserDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "alice", "alice@example.com", "hash1")
	assert.NoError(t, err)

	_, err = db.CreateUser(ctx, "alice", "other@example.com", "hash2")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = db.CreateUser(ctx, "alice2", "alice@example.com", "hash3")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSearchUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	mustCreateUser(t, db, "alicia")
	mustCreateUser(t, db, "bob")

	results, err := db.SearchUsers(ctx, "ali", alice.ID, 20)
	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alicia", results[0].Username)
}

func TestCreatePrivateChatIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	chatID, created, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// Repeat from the same side.
	again, created, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, chatID, again)

	// Repeat from the other side: still the same chat.
	fromBob, created, err := db.CreatePrivateChat(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, chatID, fromBob)

	// Exactly two participants, exactly {alice, bob}.
	participants, err := db.chatParticipants(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	ids := []int64{participants[0].ID, participants[1].ID}
	assert.ElementsMatch(t, []int64{alice.ID, bob.ID}, ids)
}

func TestCreatePrivateChatConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	const attempts = 8
	chatIDs := make([]int64, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			id, _, err := db.CreatePrivateChat(ctx, a, b)
			assert.NoError(t, err)
			chatIDs[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < attempts; i++ {
		assert.Equal(t, chatIDs[0], chatIDs[i], "concurrent creates must converge on one chat")
	}

	var count int
	err := db.db.Get(&count, "SELECT COUNT(*) FROM chats WHERE chat_type = 'private'")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreatePrivateChatValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")

	_, _, err := db.CreatePrivateChat(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfChat)

	_, _, err = db.CreatePrivateChat(ctx, alice.ID, 999999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateGroupChat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	carol := mustCreateUser(t, db, "carol")

	t.Run("creator becomes admin", func(t *testing.T) {
		chatID, err := db.CreateGroupChat(ctx, alice.ID, "team", []int64{bob.ID, carol.ID})
		require.NoError(t, err)

		p, err := db.GetParticipant(ctx, chatID, alice.ID)
		require.NoError(t, err)
		assert.True(t, p.IsAdmin)

		p, err = db.GetParticipant(ctx, chatID, bob.ID)
		require.NoError(t, err)
		assert.False(t, p.IsAdmin)
	})

	t.Run("unresolvable member aborts everything", func(t *testing.T) {
		var before int
		require.NoError(t, db.db.Get(&before, "SELECT COUNT(*) FROM chats"))

		_, err := db.CreateGroupChat(ctx, alice.ID, "ghosts", []int64{bob.ID, 999999})
		assert.ErrorIs(t, err, ErrUserNotFound)

		var after int
		require.NoError(t, db.db.Get(&after, "SELECT COUNT(*) FROM chats"))
		assert.Equal(t, before, after, "no chat may be created on partial member resolution")
	})

	t.Run("duplicate and creator ids are collapsed", func(t *testing.T) {
		chatID, err := db.CreateGroupChat(ctx, alice.ID, "dups", []int64{bob.ID, bob.ID, alice.ID})
		require.NoError(t, err)

		participants, err := db.chatParticipants(ctx, chatID)
		require.NoError(t, err)
		assert.Len(t, participants, 2)
	})
}

func TestGetParticipantGate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	mallory := mustCreateUser(t, db, "mallory")

	chatID, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = db.GetParticipant(ctx, chatID, mallory.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	// Same error for a chat that does not exist at all.
	_, err = db.GetParticipant(ctx, 999999, mallory.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestUnreadAndMarkRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	chatID, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := db.CreateMessage(ctx, chatID, bob.ID, fmt.Sprintf("msg %d", i), "", "")
		require.NoError(t, err)
	}

	// Three unread for alice, none for bob (he sent them).
	unread, err := db.CountUnread(ctx, chatID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	unread, err = db.CountUnread(ctx, chatID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// Listing with markRead clears the whole chat for alice.
	messages, err := db.ListMessages(ctx, chatID, alice.ID, 0, 50, true)
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	unread, err = db.CountUnread(ctx, chatID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// A second list changes nothing further.
	_, err = db.ListMessages(ctx, chatID, alice.ID, 0, 50, true)
	require.NoError(t, err)
	unread, err = db.CountUnread(ctx, chatID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// New messages start counting again.
	_, err = db.CreateMessage(ctx, chatID, bob.ID, "another", "", "")
	require.NoError(t, err)
	unread, err = db.CountUnread(ctx, chatID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestListMessagesWithoutMarkRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	chatID, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = db.CreateMessage(ctx, chatID, bob.ID, "hi", "", "")
	require.NoError(t, err)

	_, err = db.ListMessages(ctx, chatID, alice.ID, 0, 50, false)
	require.NoError(t, err)

	unread, err := db.CountUnread(ctx, chatID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "pure read must not mark anything")
}

func TestListMessagesPaging(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	chatID, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := db.CreateMessage(ctx, chatID, bob.ID, fmt.Sprintf("msg %d", i), "", "")
		require.NoError(t, err)
	}

	// Page 0 is the newest window, returned chronologically.
	page, err := db.ListMessages(ctx, chatID, alice.ID, 0, 2, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "msg 3", page[0].Content)
	assert.Equal(t, "msg 4", page[1].Content)

	page, err = db.ListMessages(ctx, chatID, alice.ID, 2, 2, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "msg 1", page[0].Content)
	assert.Equal(t, "msg 2", page[1].Content)

	// Skipping past the end is an empty sequence, not an error.
	page, err = db.ListMessages(ctx, chatID, alice.ID, 100, 2, false)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSendBumpsChatOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	carol := mustCreateUser(t, db, "carol")

	first, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	second, _, err := db.CreatePrivateChat(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	// A message in the older chat moves it to the top.
	_, err = db.CreateMessage(ctx, first, bob.ID, "ping", "", "")
	require.NoError(t, err)

	chats, err := db.ListChats(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, first, chats[0].ID)
	assert.Equal(t, second, chats[1].ID)
}

func TestListChatsSummaries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	chatID, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = db.CreateMessage(ctx, chatID, bob.ID, "hi", "", "")
	require.NoError(t, err)

	chats, err := db.ListChats(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)

	summary := chats[0]
	// Private chats display the counterpart's username.
	assert.Equal(t, "bob", summary.ChatName)
	assert.Equal(t, 1, summary.UnreadCount)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, "hi", summary.LastMessage.Content)
	assert.Equal(t, "bob", summary.LastMessage.Sender.Username)
	assert.Len(t, summary.Participants, 2)

	// From bob's side the same chat shows alice and no unread.
	chats, err = db.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "alice", chats[0].ChatName)
	assert.Equal(t, 0, chats[0].UnreadCount)
}

func TestCreateMessageWithAttachment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	chatID, _, err := db.CreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := db.CreateMessage(ctx, chatID, alice.ID, "see attached", "uploads/abc.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploads/abc.pdf", msg.FilePath)
	assert.Equal(t, "application/pdf", msg.FileType)
	assert.Equal(t, "alice", msg.Sender.Username)

	listed, err := db.ListMessages(ctx, chatID, bob.ID, 0, 50, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "uploads/abc.pdf", listed[0].FilePath)
}

func TestCreateMessageUnknownChat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")

	_, err := db.CreateMessage(ctx, 999999, alice.ID, "void", "", "")
	assert.Error(t, err)
}
