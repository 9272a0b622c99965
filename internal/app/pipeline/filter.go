package pipeline

import "github.com/ghalamif/BeaconFlow/internal/domain"

// Matches reports whether ev carries a manufacturer section for cfg.CompanyID.
func Matches(ev *domain.AdvertisementEvent, cfg domain.FilterConfig) bool {
	if ev == nil {
		return false
	}
	for _, sec := range ev.ManufacturerData {
		if sec.CompanyID == cfg.CompanyID {
			return true
		}
	}
	return false
}
