package syncengine

import "regexp"

// secretPatterns are coarse, advisory heuristics for content that looks
// like a credential, grounded on original_source's scan_and_warn_secrets
// contract: a hit never blocks export, it only adds a warning that the
// file "has secret(s) - will be encrypted" (it always was going to be).
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                         // AWS access key ID
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),       // PEM private key
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token)\s*[:=]\s*["'][A-Za-z0-9+/_-]{16,}["']`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`), // GitHub personal access token
}

// scanForSecrets returns the number of lines in data that match a
// known credential shape.
func scanForSecrets(data []byte) int {
	count := 0
	for _, pattern := range secretPatterns {
		count += len(pattern.FindAll(data, -1))
	}
	return count
}
