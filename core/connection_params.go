package core

import "regexp"

// ConnectionParams describe the endpoint a Connection is opened against.
// Fields may hold templates, see Expand.
type ConnectionParams struct {
	ID   ConnectionID
	Name string
	Type string
	URL  string
}

// Expand returns a copy of the original parameters with expanded fields
func (p *ConnectionParams) Expand() *ConnectionParams {
	return &ConnectionParams{
		ID:   ConnectionID(expandOrDefault(string(p.ID))),
		Name: expandOrDefault(p.Name),
		Type: expandOrDefault(p.Type),
		URL:  expandOrDefault(p.URL),
	}
}

var (
	secretParamPattern    = regexp.MustCompile(`(?i)((?:^|[;?&])(?:token|password|access_token)=)[^;&]*`)
	secretUserinfoPattern = regexp.MustCompile(`((?:^|://)[^:/@]*:)[^@/]*@`)
)

// RedactURL masks secrets (tokens and userinfo passwords) in a connection url,
// so it can be printed or logged.
func RedactURL(url string) string {
	out := secretParamPattern.ReplaceAllString(url, "${1}***")
	return secretUserinfoPattern.ReplaceAllString(out, "${1}***@")
}
