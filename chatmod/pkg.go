// Package chatmod groups the message classification engine and its stores.
// This top-level package re-exports the names most callers need; the
// sub-packages hold the actual implementations.
package chatmod

import (
	"github.com/chatwash/chatwash/chatmod/engine"
	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

type Engine = engine.Engine
type Message = engine.Message
type User = engine.User
type Chat = engine.Chat
type Evidence = engine.Evidence

type ChatClient = engine.ChatClient
type Exchange = engine.Exchange
type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier
type AuditEvent = engine.AuditEvent

type UserStore = userstore.UserStore
type WatchKind = userstore.WatchKind

var (
	CodeAffiliate  = engine.CodeAffiliate
	CodeExecutable = engine.CodeExecutable
	CodeIMLink     = engine.CodeIMLink
	CodeShortLink  = engine.CodeShortLink
	CodeTGLink     = engine.CodeTGLink
	CodeTGProxy    = engine.CodeTGProxy
	CodeQRCode     = engine.CodeQRCode

	WatchBan    = userstore.WatchBan
	WatchDelete = userstore.WatchDelete

	CategoryAff = wordstore.CategoryAff
	CategoryWb  = wordstore.CategoryWb
	CategoryBan = wordstore.CategoryBan
)
