package masking

import "github.com/bankx/agent-fabric/pkg/config"

// builtinMaskingPatterns are this module's predefined regex masking rules.
// Most are generic credential patterns any tool-execution backend can leak
// (API keys, tokens, certificates) and are kept close to teacher's set;
// account_number, card_number and national_id are added for the
// retail-banking domain this module actually serves. Kept as package-level
// data in pkg/masking rather than pkg/config: unlike per-server
// config.MaskingConfig (a deployment's choice of which groups/patterns to
// apply), this catalog is a closed, code-defined set with no per-deployment
// override, the same role classifier.Agent's fixed routing set plays for
// pkg/classifier.
var builtinMaskingPatterns = map[string]config.MaskingPattern{
	"account_number": {
		Pattern:     `(?i)(?:account[_-]?number|account_id)["\']?\s*[:=]\s*["\']?(\d{8,16})["\']?`,
		Replacement: `"account_number": "[MASKED_ACCOUNT_NUMBER]"`,
		Description: "Bank account numbers",
	},
	"card_number": {
		Pattern:     `\b(?:\d[ -]?){13,19}\b`,
		Replacement: `[MASKED_CARD_NUMBER]`,
		Description: "Payment card numbers (PAN)",
	},
	"national_id": {
		Pattern:     `\b\d-\d{4}-\d{5}-\d{2}-\d\b`,
		Replacement: `[MASKED_NATIONAL_ID]`,
		Description: "National ID numbers (13 digits, hyphenated)",
	},
	"api_key": {
		Pattern:     `(?i)(?:api[_-]?key|apikey|key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-]{20,})["\']?`,
		Replacement: `"api_key": "[MASKED_API_KEY]"`,
		Description: "API keys",
	},
	"password": {
		Pattern:     `(?i)(?:password|pwd|pass)["\']?\s*[:=]\s*["\']?([^"\'\s\n]{6,})["\']?`,
		Replacement: `"password": "[MASKED_PASSWORD]"`,
		Description: "Passwords",
	},
	"certificate": {
		Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
		Replacement: `[MASKED_CERTIFICATE]`,
		Description: "SSL/TLS certificates",
	},
	"certificate_authority_data": {
		Pattern:     `(?i)certificate-authority-data:\s*([A-Za-z0-9+/]{20,}={0,2})`,
		Replacement: `certificate-authority-data: [MASKED_CA_CERTIFICATE]`,
		Description: "CA certificate data embedded in service configuration",
	},
	"token": {
		Pattern:     `(?i)(?:token|bearer|jwt)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
		Replacement: `"token": "[MASKED_TOKEN]"`,
		Description: "Access tokens",
	},
	"email": {
		Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
		Replacement: `[MASKED_EMAIL]`,
		Description: "Email addresses",
	},
	"ssh_key": {
		Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
		Replacement: `[MASKED_SSH_KEY]`,
		Description: "SSH public keys",
	},
	"base64_secret": {
		Pattern:     `\b([A-Za-z0-9+/]{20,}={0,2})\b`,
		Replacement: `[MASKED_BASE64_VALUE]`,
		Description: "Base64 values (20+ chars)",
	},
	"base64_short": {
		Pattern:     `:\s+([A-Za-z0-9+/]{4,19}={0,2})(?:\s|$)`,
		Replacement: `: [MASKED_SHORT_BASE64]`,
		Description: "Short base64 values",
	},
	"private_key": {
		Pattern:     `(?i)(?:private[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
		Replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`,
		Description: "Private keys",
	},
	"secret_key": {
		Pattern:     `(?i)(?:secret[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
		Replacement: `"secret_key": "[MASKED_SECRET_KEY]"`,
		Description: "Secret keys",
	},
	"aws_access_key": {
		Pattern:     `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["\']?\s*[:=]\s*["\']?(AKIA[A-Z0-9]{16})["\']?`,
		Replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
		Description: "AWS access keys",
	},
	"aws_secret_key": {
		Pattern:     `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9/+=]{40})["\']?`,
		Replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`,
		Description: "AWS secret keys",
	},
	"github_token": {
		Pattern:     `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`,
		Replacement: `[MASKED_GITHUB_TOKEN]`,
		Description: "GitHub tokens",
	},
	"slack_token": {
		Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
		Replacement: `[MASKED_SLACK_TOKEN]`,
		Description: "Slack tokens",
	},
}

// builtinPatternGroups groups patterns by use case, exactly as teacher's
// PatternGroups did, but with "kubernetes" replaced by "account_data" — the
// banking-domain group pairing the AccountDataMasker code masker with the
// regex patterns most likely to co-occur with it in an MCP tool result.
func builtinPatternGroupsInit() map[string][]string {
	return map[string][]string{
		"basic":        {"api_key", "password"},
		"secrets":      {"api_key", "password", "token", "private_key", "secret_key"},
		"security":     {"api_key", "password", "token", "certificate", "certificate_authority_data", "email", "ssh_key"},
		"account_data": {"account_data", "account_number", "card_number", "national_id"},
		"cloud":        {"aws_access_key", "aws_secret_key", "api_key", "token"},
		"all": {
			"base64_secret", "base64_short", "api_key", "password", "certificate",
			"certificate_authority_data", "email", "token", "ssh_key", "private_key",
			"secret_key", "aws_access_key", "aws_secret_key", "github_token", "slack_token",
			"account_data", "account_number", "card_number", "national_id",
		},
	}
}

var builtinPatternGroups = builtinPatternGroupsInit()

// builtinCodeMaskers lists the code-based maskers pattern groups can
// reference by name. Each entry must match a Masker registered in
// service.go's NewMaskingService (registerMasker).
var builtinCodeMaskers = []string{
	"account_data", // pkg/masking/account_data.go
}
