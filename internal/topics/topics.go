// Package topics assigns display topics to alerts by keyword matching.
package topics

import "strings"

// ID identifies a topic in the fixed registry.
type ID string

const (
	TopicMicrosoft   ID = "microsoft"
	TopicCisco       ID = "cisco"
	TopicVMware      ID = "vmware"
	TopicLinux       ID = "linux"
	TopicCloud       ID = "cloud"
	TopicRansomware  ID = "ransomware"
	TopicPhishing    ID = "phishing"
	TopicBreach      ID = "breach"
	TopicNetworkEdge ID = "network-edge"
	TopicBrowser     ID = "browser"
	TopicGeneral     ID = "general"
)

// Alert type overrides applied after keyword matching.
const (
	msrcFeedPrefix = "msrc_"
	breachMarker   = "data_breach"
)

type entry struct {
	id       ID
	keywords []string
}

// registry is the ordered topic table. Entries are evaluated independently;
// a single alert can match several topics.
var registry = []entry{
	{TopicMicrosoft, []string{"microsoft", "windows", "azure", "office 365", "exchange", "sharepoint", "outlook", "active directory"}},
	{TopicCisco, []string{"cisco", "ios xe", "asa", "firepower", "webex"}},
	{TopicVMware, []string{"vmware", "esxi", "vcenter", "vsphere", "broadcom"}},
	{TopicLinux, []string{"linux", "debian", "ubuntu", "red hat", "kernel", "glibc", "openssh"}},
	{TopicCloud, []string{"aws", "amazon web services", "google cloud", "gcp", "kubernetes", "docker", "s3 bucket"}},
	{TopicRansomware, []string{"ransomware", "lockbit", "blackcat", "ransom", "encryptor", "extortion"}},
	{TopicPhishing, []string{"phishing", "credential harvest", "spear-phishing", "business email compromise", "smishing"}},
	{TopicBreach, []string{"data breach", "data leak", "leaked database", "stolen records", "exfiltrat"}},
	{TopicNetworkEdge, []string{"vpn", "firewall", "fortinet", "fortigate", "pulse secure", "citrix", "ivanti", "router"}},
	{TopicBrowser, []string{"chrome", "firefox", "safari", "chromium", "webkit", "browser"}},
}

// Input is the classification view of an alert.
type Input struct {
	Title            string
	AffectedProducts []string
	AffectedVendors  []string
	AlertType        string
	SourceName       string
}

// Classify returns the topic set for an alert. Keyword matching is substring
// based over a lowercase haystack of title, products, vendors and source name.
// Provider-feed and breach-marker alert types force their topics afterwards.
// An alert matching nothing classifies as general.
func Classify(in Input) []ID {
	var b strings.Builder
	b.WriteString(in.Title)
	for _, p := range in.AffectedProducts {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	for _, v := range in.AffectedVendors {
		b.WriteByte(' ')
		b.WriteString(v)
	}
	b.WriteByte(' ')
	b.WriteString(in.SourceName)
	haystack := strings.ToLower(b.String())

	var matched []ID
	seen := make(map[ID]bool)
	for _, e := range registry {
		for _, kw := range e.keywords {
			if strings.Contains(haystack, kw) {
				matched = append(matched, e.id)
				seen[e.id] = true
				break
			}
		}
	}

	if strings.HasPrefix(in.AlertType, msrcFeedPrefix) && !seen[TopicMicrosoft] {
		matched = append(matched, TopicMicrosoft)
		seen[TopicMicrosoft] = true
	}
	if in.AlertType == breachMarker && !seen[TopicBreach] {
		matched = append(matched, TopicBreach)
	}

	if len(matched) == 0 {
		return []ID{TopicGeneral}
	}
	return matched
}

// All returns the registry topic ids in evaluation order, general last.
func All() []ID {
	ids := make([]ID, 0, len(registry)+1)
	for _, e := range registry {
		ids = append(ids, e.id)
	}
	return append(ids, TopicGeneral)
}

// Count tallies topic occurrences over a set of classified alerts.
func Count(assignments [][]ID) map[ID]int {
	counts := make(map[ID]int)
	for _, ids := range assignments {
		for _, id := range ids {
			counts[id]++
		}
	}
	return counts
}
