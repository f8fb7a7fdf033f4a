package services

import (
	"net/url"
	"strings"
)

const (
	ShippingProviderPostNL = "postnl"
	ShippingProviderDHL    = "dhl"
	ShippingProviderDPD    = "dpd"
	ShippingProviderOther  = "other"
)

// NormalizeShippingProvider returns a canonical provider key for known carriers.
func NormalizeShippingProvider(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	normalized = replacer.Replace(normalized)

	switch normalized {
	case "postnl", "tntpost":
		return ShippingProviderPostNL
	case "dhl", "dhlparcel", "dhlecommerce":
		return ShippingProviderDHL
	case "dpd":
		return ShippingProviderDPD
	case "other":
		return ShippingProviderOther
	default:
		return ""
	}
}

// CanonicalCarrierName maps a provider key to the display name.
func CanonicalCarrierName(provider string) string {
	switch NormalizeShippingProvider(provider) {
	case ShippingProviderPostNL:
		return "PostNL"
	case ShippingProviderDHL:
		return "DHL"
	case ShippingProviderDPD:
		return "DPD"
	default:
		return ""
	}
}

// NormalizeCarrierName keeps custom carriers untouched and normalizes known ones.
func NormalizeCarrierName(carrier string) string {
	trimmed := strings.TrimSpace(carrier)
	if trimmed == "" {
		return ""
	}
	if canonical := CanonicalCarrierName(trimmed); canonical != "" {
		return canonical
	}
	return trimmed
}

// BuildTrackingURL returns a carrier-specific tracking URL. PostNL and DHL
// need the destination postal code; unknown carriers return empty.
func BuildTrackingURL(carrier, trackingNumber, postalCode, country string) string {
	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return ""
	}

	escaped := url.PathEscape(number)
	postal := url.PathEscape(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postalCode), " ", "")))
	cc := strings.ToUpper(strings.TrimSpace(country))
	if cc == "" {
		cc = "NL"
	}

	switch NormalizeShippingProvider(carrier) {
	case ShippingProviderPostNL:
		return "https://jouw.postnl.nl/track-and-trace/" + escaped + "-" + cc + "-" + postal
	case ShippingProviderDHL:
		return "https://my.dhlecommerce.nl/home/tracktrace/" + escaped + "/" + postal
	case ShippingProviderDPD:
		return "https://tracking.dpd.de/status/nl_NL/parcel/" + escaped
	default:
		return ""
	}
}
