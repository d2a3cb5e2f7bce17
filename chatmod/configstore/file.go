package configstore

import (
	"encoding/json"
	"io"
	"os"
)

type configFile struct {
	Groups         map[string]GroupConfig `json:"groups"`
	Admins         map[string][]int64     `json:"admins"`
	Bots           []int64                `json:"bots"`
	ExceptChannels []int64                `json:"except_channels"`
	ExceptContent  []string               `json:"except_content"`
	ExemptCommands []string               `json:"exempt_commands"`
}

// LoadFromFileJSON populates the store from a JSON config file. Group ids are
// JSON object keys, so they are encoded as strings.
func (s *MemConfigStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var cf configFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return err
	}

	for gid, cfg := range cf.Groups {
		id, err := parseID(gid)
		if err != nil {
			return err
		}
		s.SetConfig(id, cfg)
	}
	for gid, uids := range cf.Admins {
		id, err := parseID(gid)
		if err != nil {
			return err
		}
		s.SetGroupAdmins(id, uids...)
	}
	for _, uid := range cf.Bots {
		s.AddKnownBot(uid)
	}
	for _, cid := range cf.ExceptChannels {
		s.AddExceptChannel(cid)
	}
	for _, token := range cf.ExceptContent {
		s.AddExceptContent(token)
	}
	for _, name := range cf.ExemptCommands {
		s.AddExemptCommand(name)
	}
	return nil
}

func parseID(s string) (int64, error) {
	var id int64
	err := json.Unmarshal([]byte(s), &id)
	return id, err
}
