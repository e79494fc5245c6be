package simstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/craftdesk/mailroom/pkg/types"
)

const (
	seenFlag = "\\Seen"

	// spamSeedCount is the size of the generated spam dataset; every
	// spamAttachmentEvery-th entry carries an attachment.
	spamSeedCount       = 45
	spamAttachmentEvery = 5
)

// seedFolder builds the synthetic dataset for a folder on first access.
func (s *Store) seedFolder(userID, folder string) []*types.EmailMessage {
	switch {
	case types.SameFolder(folder, types.FolderSpam):
		return s.seedSpam(userID)
	case types.SameFolder(folder, types.FolderSent):
		return s.seedSent(userID)
	case types.SameFolder(folder, types.FolderTrash):
		return s.seedTrash()
	default:
		return s.seedInbox()
	}
}

func (s *Store) seedInbox() []*types.EmailMessage {
	now := s.now()
	return []*types.EmailMessage{
		s.canned("Welcome to your mailbox", "Hannah Price", "hannah@craftdesk.io",
			"Hi there,\n\nYour mailbox is connected and ready to go. Reply to this message to test it out.\n\nHannah",
			now.Add(-2*time.Hour), false, types.FolderInbox),
		s.canned("Invoice #2041 — payment received", "Billing", "billing@northwind.example",
			"We have received your payment of $420.00 for invoice #2041. No further action is required.",
			now.Add(-26*time.Hour), true, types.FolderInbox),
		s.canned("Re: Friday demo schedule", "Marcus Lee", "marcus.lee@example.com",
			"Works for me. Let's lock in 14:00 and keep 30 minutes for questions afterwards.",
			now.Add(-3*24*time.Hour), true, types.FolderInbox),
	}
}

func (s *Store) seedSent(userID string) []*types.EmailMessage {
	now := s.now()
	return []*types.EmailMessage{
		s.canned("Friday demo schedule", userID, userID+"@craftdesk.io",
			"Proposing Friday 14:00 for the demo. Does that work for everyone?",
			now.Add(-4*24*time.Hour), true, types.FolderSent),
		s.canned("Quarterly summary draft", userID, userID+"@craftdesk.io",
			"Attached the first draft of the quarterly summary, comments welcome.",
			now.Add(-9*24*time.Hour), true, types.FolderSent),
	}
}

func (s *Store) seedTrash() []*types.EmailMessage {
	return []*types.EmailMessage{
		s.canned("Weekly newsletter", "Updates", "updates@newsletter.example",
			"This week in product updates...",
			s.now().Add(-12*24*time.Hour), true, types.FolderTrash),
	}
}

var spamSubjects = []string{
	"You have won a prize",
	"Urgent: verify your account now",
	"Limited time offer just for you",
	"Your package could not be delivered",
	"Congratulations, you were selected",
	"Final notice regarding your warranty",
	"Unlock exclusive rewards today",
	"Your payment is pending confirmation",
	"Act now to claim your bonus",
}

var spamSenders = []types.Address{
	{Name: "Prize Center", Address: "win@prizes.example"},
	{Name: "Account Security", Address: "security@verify.example"},
	{Name: "Deals Daily", Address: "offers@dealsdaily.example"},
	{Name: "Parcel Service", Address: "delivery@parcels.example"},
	{Name: "Rewards Team", Address: "rewards@bonus.example"},
}

// seedSpam generates the large synthetic spam dataset: spamSeedCount
// messages with randomized timestamps and read state, an attachment on
// every spamAttachmentEvery-th entry. Randomness comes from the store's
// injected source, so a fixed seed reproduces the dataset exactly.
func (s *Store) seedSpam(userID string) []*types.EmailMessage {
	now := s.now()
	msgs := make([]*types.EmailMessage, 0, spamSeedCount)

	for i := 0; i < spamSeedCount; i++ {
		subject := fmt.Sprintf("%s #%d", spamSubjects[i%len(spamSubjects)], i+1)
		sender := spamSenders[i%len(spamSenders)]
		age := time.Duration(s.rng.Intn(30*24)) * time.Hour
		read := s.rng.Intn(3) == 0

		msg := &types.EmailMessage{
			ID:      s.seedID(),
			UID:     uint32(9000 + i),
			Folder:  types.FolderSpam,
			Subject: subject,
			From:    []types.Address{sender},
			To:      []types.Address{{Name: userID, Address: userID + "@craftdesk.io"}},
			Date:    now.Add(-age),
			Text:    "This is a promotional message. If you did not request it, you can safely ignore it.",
			IsRead:  read,
			IsSpam:  true,
			Flags:   []string{"Junk"},
		}
		if read {
			msg.Flags = append(msg.Flags, seenFlag)
		}
		if (i+1)%spamAttachmentEvery == 0 {
			msg.Attachments = []types.Attachment{{
				Filename:    fmt.Sprintf("offer-%d.pdf", i+1),
				ContentType: "application/pdf",
				Size:        1024 * (1 + s.rng.Intn(64)),
			}}
			msg.HasAttachments = true
		}
		msg.Snippet = msg.Text
		msgs = append(msgs, msg)
	}

	return msgs
}

// seedID draws a message id from the store's injected randomness so a
// fixed seed reproduces the dataset, ids included.
func (s *Store) seedID() string {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// canned builds one deterministic seed message.
func (s *Store) canned(subject, fromName, fromAddr, body string, date time.Time, read bool, folder string) *types.EmailMessage {
	msg := &types.EmailMessage{
		ID:      s.seedID(),
		UID:     uint32(1000 + s.rng.Intn(8000)),
		Folder:  folder,
		Subject: subject,
		From:    []types.Address{{Name: fromName, Address: fromAddr}},
		Date:    date,
		Text:    body,
		Snippet: body,
		IsRead:  read,
	}
	if read {
		msg.Flags = []string{seenFlag}
	}
	return msg
}
