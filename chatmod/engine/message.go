package engine

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/minio/sha256-simd"

	"github.com/chatwash/chatwash/chatmod/keyword"
)

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	IsSelf    bool
	IsBot     bool
}

type Chat struct {
	ID       int64
	Username string
}

type Sticker struct {
	SetName      string
	FileUniqueID string
	IsAnimated   bool
}

type Document struct {
	FileName     string
	MimeType     string
	FileUniqueID string
}

type Game struct {
	ShortName string
}

type Photo struct {
	FileID       string
	FileUniqueID string
	// Big marks a photo large enough to bother scanning for QR codes.
	Big bool
}

type EntityType string

const (
	EntityMention  EntityType = "mention"
	EntityURL      EntityType = "url"
	EntityTextLink EntityType = "text_link"
)

type Entity struct {
	Type EntityType
	// Text is the literal substring the entity covers, including any leading @.
	Text string
	// URL is set for text_link entities.
	URL string
}

// A single inbound group message, already decoded by the transport layer.
type Message struct {
	ID   int64
	Chat Chat
	From *User

	ForwardFrom     *User
	ForwardFromChat *Chat

	Text     string
	Caption  string
	Entities []Entity

	Sticker   *Sticker
	Document  *Document
	Game      *Game
	Photo     *Photo
	Contact   bool
	Location  bool
	Venue     bool
	VideoNote bool
	Voice     bool
	Audio     bool
	Animation bool
	ViaBot    bool
	Video     bool
	Service   bool
}

// PlainText returns the message text, falling back to the media caption.
func (m *Message) PlainText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// SenderName is the sender's normalized display name, empty for non-user
// messages.
func (m *Message) SenderName() string {
	if m.From == nil {
		return ""
	}
	return keyword.NormalizeName(strings.TrimSpace(m.From.FirstName + " " + m.From.LastName))
}

// AllLinks collects link targets from url and text_link entities.
func (m *Message) AllLinks() []string {
	var out []string
	for _, en := range m.Entities {
		switch en.Type {
		case EntityURL:
			out = append(out, stripLink(en.Text))
		case EntityTextLink:
			out = append(out, stripLink(en.URL))
		}
	}
	return out
}

// ContentKey is the raw deduplication token for the message: text for text
// messages, otherwise the attached media's unique file id. Empty for messages
// with no comparable content.
func (m *Message) ContentKey() string {
	if t := m.PlainText(); t != "" {
		return t
	}
	if m.Sticker != nil {
		return m.Sticker.FileUniqueID
	}
	if m.Document != nil {
		return m.Document.FileUniqueID
	}
	if m.Photo != nil {
		return m.Photo.FileUniqueID
	}
	return ""
}

// Fingerprint is a compact digest of ContentKey, used as the key of the
// detected-content table.
func (m *Message) Fingerprint() string {
	key := m.ContentKey()
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsGIF covers both native animations and GIFs sent as documents.
func (m *Message) IsGIF() bool {
	if m.Animation {
		return true
	}
	return m.Document != nil && strings.Contains(m.Document.MimeType, "gif")
}

// ChannelLink is the chat's own canonical link in stripped (scheme-less) form,
// used to whitelist self-references.
func (m *Message) ChannelLink() string {
	if m.Chat.Username != "" {
		return "t.me/" + m.Chat.Username
	}
	return "t.me/c/" + strconv.FormatInt(-m.Chat.ID, 10)
}

// stripLink removes the URL scheme so link comparisons ignore http/https.
func stripLink(link string) string {
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")
	return link
}
