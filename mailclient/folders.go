package mailclient

import (
	"strings"

	"phishmail/models"
)

// Candidate provider names per role, ordered by specificity. Folder
// naming varies wildly between providers and locales, so resolution is
// a case-insensitive substring match with a canonical fallback.
var folderCandidates = map[models.Role][]string{
	models.RoleSent: {
		"[Gmail]/Sent Mail", "Sent Items", "Sent Messages", "Sent",
		"Envoyés", "Gesendet", "Inviati",
	},
	models.RoleTrash: {
		"[Gmail]/Trash", "Deleted Messages", "Trash", "Bin",
		"Papierkorb", "Corbeille",
	},
	models.RoleQuarantine: {
		"Phishing", "Quarantine", "[Gmail]/Spam", "Junk",
	},
}

var folderDefaults = map[models.Role]string{
	models.RoleInbox:      "INBOX",
	models.RoleSent:       "Sent",
	models.RoleTrash:      "Trash",
	models.RoleQuarantine: "Phishing",
}

// ResolveFolder maps a role to the provider's actual folder name.
// It fails soft: on listing failure or no match it returns the
// canonical default, which may not exist yet; callers create it on
// first use via EnsureFolder.
func ResolveFolder(s Session, role models.Role) string {
	if role == models.RoleInbox {
		return folderDefaults[models.RoleInbox]
	}

	names, err := s.List()
	if err != nil {
		return folderDefaults[role]
	}

	for _, cand := range folderCandidates[role] {
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), strings.ToLower(cand)) {
				return name
			}
		}
	}
	return folderDefaults[role]
}

// ResolveFolders resolves every role once for a connection session.
func ResolveFolders(s Session) map[models.Role]string {
	folders := make(map[models.Role]string, 4)
	for _, role := range models.Roles() {
		folders[role] = ResolveFolder(s, role)
	}
	return folders
}

// EnsureFolder attempts to create a folder, ignoring failure: the
// common error is "already exists", and a genuinely failed create
// surfaces on the operation that needed the folder anyway.
func EnsureFolder(s Session, name string) {
	_ = s.Create(name)
}
