package tibber

import (
	"fmt"
	"log"
)

// ConsumptionRecord is one hourly consumption entry.
type ConsumptionRecord struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Cost         *float64 `json:"cost"`
	Consumption  *float64 `json:"consumption"`
	UnitPrice    *float64 `json:"unitPrice"`
	UnitPriceVAT *float64 `json:"unitPriceVAT"`
}

const consumptionQuery = `
{
  viewer {
    homes {
      consumption(resolution: HOURLY, first: 100, after: "%s") {
        pageInfo {
          endCursor
          hasNextPage
          count
        }
        nodes {
          from
          to
          cost
          consumption
          unitPrice
          unitPriceVAT
        }
      }
    }
  }
}
`

// FetchHistoricalConsumption pages through hourly consumption data
// from the given base64 cursor until the last page.
func (c *Client) FetchHistoricalConsumption(afterCursor string) ([]ConsumptionRecord, error) {
	var all []ConsumptionRecord
	for {
		var data struct {
			Viewer struct {
				Homes []struct {
					Consumption struct {
						PageInfo pageInfo            `json:"pageInfo"`
						Nodes    []ConsumptionRecord `json:"nodes"`
					} `json:"consumption"`
				} `json:"homes"`
			} `json:"viewer"`
		}
		if err := c.query(fmt.Sprintf(consumptionQuery, afterCursor), &data); err != nil {
			log.Printf("Failed to fetch consumption page: %v", err)
			return all, err
		}
		if len(data.Viewer.Homes) == 0 {
			return all, fmt.Errorf("no homes on account")
		}
		page := data.Viewer.Homes[0].Consumption
		all = append(all, page.Nodes...)
		if !page.PageInfo.HasNextPage {
			return all, nil
		}
		afterCursor = page.PageInfo.EndCursor
	}
}

// FirstHomeId returns the id of the first home on the account.
func (c *Client) FirstHomeId() (string, error) {
	var data struct {
		Viewer struct {
			Homes []struct {
				Id string `json:"id"`
			} `json:"homes"`
		} `json:"viewer"`
	}
	if err := c.query("{ viewer { homes { id } } }", &data); err != nil {
		return "", err
	}
	if len(data.Viewer.Homes) == 0 {
		return "", fmt.Errorf("no homes on account")
	}
	return data.Viewer.Homes[0].Id, nil
}
