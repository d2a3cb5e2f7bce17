package main

import (
	"unicode/utf16"

	"github.com/chatwash/chatwash/chatmod/engine"
)

// Wire shape of an inbound webhook update, reduced to the fields the engine
// inspects.
type apiUpdate struct {
	UpdateID int64       `json:"update_id"`
	Message  *apiMessage `json:"message"`
}

type apiUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type apiMessage struct {
	MessageID int64    `json:"message_id"`
	From      *apiUser `json:"from"`
	Chat      struct {
		ID       int64  `json:"id"`
		Type     string `json:"type"`
		Username string `json:"username"`
	} `json:"chat"`
	ForwardFrom     *apiUser `json:"forward_from"`
	ForwardFromChat *struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"forward_from_chat"`

	Text     string `json:"text"`
	Caption  string `json:"caption"`
	Entities []struct {
		Type   string `json:"type"`
		Offset int    `json:"offset"`
		Length int    `json:"length"`
		URL    string `json:"url"`
	} `json:"entities"`
	CaptionEntities []struct {
		Type   string `json:"type"`
		Offset int    `json:"offset"`
		Length int    `json:"length"`
		URL    string `json:"url"`
	} `json:"caption_entities"`

	Sticker *struct {
		SetName      string `json:"set_name"`
		FileUniqueID string `json:"file_unique_id"`
		IsAnimated   bool   `json:"is_animated"`
	} `json:"sticker"`
	Document *struct {
		FileName     string `json:"file_name"`
		MimeType     string `json:"mime_type"`
		FileUniqueID string `json:"file_unique_id"`
	} `json:"document"`
	Game *struct {
		ShortName string `json:"short_name"`
	} `json:"game"`
	Photo []struct {
		FileID       string `json:"file_id"`
		FileUniqueID string `json:"file_unique_id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
	} `json:"photo"`

	Contact   *struct{} `json:"contact"`
	Location  *struct{} `json:"location"`
	Venue     *struct{} `json:"venue"`
	VideoNote *struct{} `json:"video_note"`
	Voice     *struct{} `json:"voice"`
	Audio     *struct{} `json:"audio"`
	Animation *struct{} `json:"animation"`
	Video     *struct{} `json:"video"`
	ViaBot    *apiUser  `json:"via_bot"`

	NewChatMembers []apiUser `json:"new_chat_members"`
	LeftChatMember *apiUser  `json:"left_chat_member"`
	PinnedMessage  *struct{} `json:"pinned_message"`
}

// qrScanMinSide is the smallest photo dimension worth running QR detection
// on; tiny thumbnails never decode.
const qrScanMinSide = 200

func toUser(u *apiUser, selfID int64) *engine.User {
	if u == nil {
		return nil
	}
	return &engine.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		IsSelf:    u.ID == selfID,
		IsBot:     u.IsBot,
	}
}

// toMessage flattens a wire message into the engine's shape. Entity offsets
// are resolved to literal substrings here so the engine never deals with
// UTF-16 offset math.
func toMessage(m *apiMessage, selfID int64) *engine.Message {
	msg := &engine.Message{
		ID:   m.MessageID,
		Chat: engine.Chat{ID: m.Chat.ID, Username: m.Chat.Username},
		From: toUser(m.From, selfID),

		ForwardFrom: toUser(m.ForwardFrom, selfID),

		Text:    m.Text,
		Caption: m.Caption,

		Contact:   m.Contact != nil,
		Location:  m.Location != nil,
		Venue:     m.Venue != nil,
		VideoNote: m.VideoNote != nil,
		Voice:     m.Voice != nil,
		Audio:     m.Audio != nil,
		Animation: m.Animation != nil,
		Video:     m.Video != nil,
		ViaBot:    m.ViaBot != nil,
		Service:   len(m.NewChatMembers) > 0 || m.LeftChatMember != nil || m.PinnedMessage != nil,
	}
	if m.ForwardFromChat != nil {
		msg.ForwardFromChat = &engine.Chat{ID: m.ForwardFromChat.ID, Username: m.ForwardFromChat.Username}
	}
	if m.Sticker != nil {
		msg.Sticker = &engine.Sticker{
			SetName:      m.Sticker.SetName,
			FileUniqueID: m.Sticker.FileUniqueID,
			IsAnimated:   m.Sticker.IsAnimated,
		}
	}
	if m.Document != nil {
		msg.Document = &engine.Document{
			FileName:     m.Document.FileName,
			MimeType:     m.Document.MimeType,
			FileUniqueID: m.Document.FileUniqueID,
		}
	}
	if m.Game != nil {
		msg.Game = &engine.Game{ShortName: m.Game.ShortName}
	}
	if len(m.Photo) > 0 {
		// the API lists size variants smallest first; take the largest
		biggest := m.Photo[len(m.Photo)-1]
		msg.Photo = &engine.Photo{
			FileID:       biggest.FileID,
			FileUniqueID: biggest.FileUniqueID,
			Big:          biggest.Width >= qrScanMinSide && biggest.Height >= qrScanMinSide,
		}
	}

	text := m.Text
	entities := m.Entities
	if text == "" {
		text = m.Caption
		entities = m.CaptionEntities
	}
	// entity offsets and lengths count UTF-16 code units
	units := utf16.Encode([]rune(text))
	for _, en := range entities {
		var lit string
		if en.Offset >= 0 && en.Length >= 0 && en.Offset+en.Length <= len(units) {
			lit = string(utf16.Decode(units[en.Offset : en.Offset+en.Length]))
		}
		switch en.Type {
		case "url":
			msg.Entities = append(msg.Entities, engine.Entity{Type: engine.EntityURL, Text: lit})
		case "text_link":
			msg.Entities = append(msg.Entities, engine.Entity{Type: engine.EntityTextLink, Text: lit, URL: en.URL})
		case "mention":
			msg.Entities = append(msg.Entities, engine.Entity{Type: engine.EntityMention, Text: lit})
		}
	}
	return msg
}
