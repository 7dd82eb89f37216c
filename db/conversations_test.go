package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dmsg/models"
)

func TestContacts(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	mustRegister(t, database, "bob", "pass2")
	mustRegister(t, database, "carol", "pass3")
	mustRegister(t, database, "dave", "pass4")

	// Both directions count; dave never talks to alice.
	_, err := database.SendMessage("alice", "bob", "hi bob")
	require.NoError(t, err)
	_, err = database.SendMessage("carol", "alice", "hi alice")
	require.NoError(t, err)
	_, err = database.SendMessage("carol", "dave", "hi dave")
	require.NoError(t, err)

	contacts, err := database.Contacts("alice")
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "carol"}, contacts)

	contacts, err = database.Contacts("dave")
	require.NoError(t, err)
	require.Equal(t, []string{"carol"}, contacts)
}

func TestContactsNoMessages(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")

	contacts, err := database.Contacts("alice")
	require.NoError(t, err)
	require.Empty(t, contacts)
}

func TestLastActivity(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	mustRegister(t, database, "bob", "pass2")

	// No conversation yet: the empty sentinel, not an error.
	_, ok, err := database.LastActivity("alice", "bob")
	require.NoError(t, err)
	require.False(t, ok)

	first, err := database.SendMessage("alice", "bob", "one")
	require.NoError(t, err)
	second, err := database.SendMessage("bob", "alice", "two")
	require.NoError(t, err)

	setMessageTime(t, database, first, "2024-06-01T10:00:00Z")
	setMessageTime(t, database, second, "2024-06-01T10:05:00Z")

	last, ok, err := database.LastActivity("alice", "bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC), last)

	// Symmetric regardless of argument order.
	last, ok, err = database.LastActivity("bob", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC), last)
}

func TestOrderedContactsByRecency(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	mustRegister(t, database, "bob", "pass2")
	mustRegister(t, database, "carol", "pass3")

	toBob, err := database.SendMessage("alice", "bob", "old thread")
	require.NoError(t, err)
	toCarol, err := database.SendMessage("alice", "carol", "new thread")
	require.NoError(t, err)

	setMessageTime(t, database, toBob, "2024-06-01T10:00:00Z")
	setMessageTime(t, database, toCarol, "2024-06-01T11:00:00Z")

	contacts, err := database.OrderedContacts("alice")
	require.NoError(t, err)
	require.Equal(t, []models.ContactActivity{
		{Username: "carol", LastActivity: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)},
		{Username: "bob", LastActivity: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}, contacts)

	// A reply on the older thread moves it back to the top.
	reply, err := database.SendMessage("bob", "alice", "bump")
	require.NoError(t, err)
	setMessageTime(t, database, reply, "2024-06-01T12:00:00Z")

	contacts, err = database.OrderedContacts("alice")
	require.NoError(t, err)
	require.Equal(t, "bob", contacts[0].Username)
}

func TestOrderedContactsTieBreak(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	mustRegister(t, database, "bob", "pass2")
	mustRegister(t, database, "carol", "pass3")

	toCarol, err := database.SendMessage("alice", "carol", "hi")
	require.NoError(t, err)
	toBob, err := database.SendMessage("alice", "bob", "hi")
	require.NoError(t, err)

	// Identical last activity: username ascending keeps the order
	// deterministic.
	setMessageTime(t, database, toCarol, "2024-06-01T10:00:00Z")
	setMessageTime(t, database, toBob, "2024-06-01T10:00:00Z")

	contacts, err := database.OrderedContacts("alice")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.Equal(t, "bob", contacts[0].Username)
	require.Equal(t, "carol", contacts[1].Username)
}

func TestTotalUnread(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	mustRegister(t, database, "bob", "pass2")
	mustRegister(t, database, "carol", "pass3")

	_, err := database.SendMessage("alice", "bob", "one")
	require.NoError(t, err)
	_, err = database.SendMessage("alice", "bob", "two")
	require.NoError(t, err)
	_, err = database.SendMessage("carol", "bob", "three")
	require.NoError(t, err)
	_, err = database.SendMessage("bob", "alice", "outbound")
	require.NoError(t, err)

	total, err := database.TotalUnread("bob")
	require.NoError(t, err)
	require.Equal(t, 3, total)

	require.NoError(t, database.MarkRead("bob", "alice"))

	total, err = database.TotalUnread("bob")
	require.NoError(t, err)
	require.Equal(t, 1, total)
}
