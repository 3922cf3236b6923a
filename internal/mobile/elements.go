package mobile

import (
	"fmt"
	"sort"

	"streamqa/internal/core/domain"
)

// elementIDs maps logical element names to the accessibility id (ios) or
// resource id (android) a device driver would look up.
var elementIDs = map[domain.Element]map[domain.Platform]string{
	domain.ElementWelcomeLoginButton: {
		domain.PlatformIOS:     "login_button_ios",
		domain.PlatformAndroid: "login_button_android",
	},
	domain.ElementEmailInput: {
		domain.PlatformIOS:     "email_input_ios",
		domain.PlatformAndroid: "email_input_android",
	},
	domain.ElementPasswordInput: {
		domain.PlatformIOS:     "password_input_ios",
		domain.PlatformAndroid: "password_input_android",
	},
	domain.ElementSubmitLogin: {
		domain.PlatformIOS:     "submit_login_button_ios",
		domain.PlatformAndroid: "submit_login_button_android",
	},
	domain.ElementStartStreamButton: {
		domain.PlatformIOS:     "start_stream_button_ios",
		domain.PlatformAndroid: "start_stream_button_android",
	},
	domain.ElementStopStreamButton: {
		domain.PlatformIOS:     "stop_stream_button_ios",
		domain.PlatformAndroid: "stop_stream_button_android",
	},
}

func init() {
	for element, ids := range elementIDs {
		for _, platform := range domain.Platforms {
			if ids[platform] == "" {
				panic(fmt.Sprintf("mobile: element %q has no %s id", element, platform))
			}
		}
	}
}

// Resolve returns the platform-specific id of a logical element.
func Resolve(element domain.Element, platform domain.Platform) (string, error) {
	ids, ok := elementIDs[element]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownElement, element)
	}
	id, ok := ids[platform]
	if !ok {
		return "", fmt.Errorf("%w: %q for element %q", domain.ErrUnknownPlatform, platform, element)
	}
	return id, nil
}

// Elements returns every known logical element, sorted by name.
func Elements() []domain.Element {
	out := make([]domain.Element, 0, len(elementIDs))
	for e := range elementIDs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
