package services

import "strings"

type Platform struct {
	Name string
	// Audio reports whether an audio-only track can be extracted.
	Audio bool
	hosts []string
}

var (
	Pinterest = Platform{Name: "Pinterest", Audio: false, hosts: []string{"pinterest.com", "pin.it"}}
	YouTube   = Platform{Name: "YouTube", Audio: true, hosts: []string{"youtube.com", "youtu.be"}}
)

var platforms = []Platform{Pinterest, YouTube}

// ClassifyURL matches url against the supported platforms by host substring.
func ClassifyURL(url string) (Platform, bool) {
	lower := strings.ToLower(url)
	for _, p := range platforms {
		for _, h := range p.hosts {
			if strings.Contains(lower, h) {
				return p, true
			}
		}
	}
	return Platform{}, false
}
