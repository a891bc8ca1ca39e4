package platform

import "github.com/marketsignal/newsmatch/internal/domain"

func mapContract(c contractDTO) domain.PlatformContract {
	return domain.PlatformContract{
		ContractTicker: c.Ticker,
		Title:          c.Title,
		YesPrice:       c.YesPrice,
		NoPrice:        c.NoPrice,
		Volume:         c.Volume,
		Liquidity:      c.Liquidity,
		IsActive:       c.Active,
		Metadata:       map[string]string{"event_id": c.EventID},
	}
}

func mapEvent(e eventDTO) domain.PlatformMarket {
	contracts := make([]domain.PlatformContract, 0, len(e.Markets))
	for _, c := range e.Markets {
		contracts = append(contracts, mapContract(c))
	}

	pm := domain.PlatformMarket{
		EventTicker:  e.EventTicker,
		SeriesTicker: e.SeriesTicker,
		Title:        e.Title,
		URL:          e.URL,
		Category:     e.Category,
		Contracts:    contracts,
	}
	if end, ok := parseEndDate(e.EndDate); ok {
		pm.EndDate = &end
	}
	return pm
}
