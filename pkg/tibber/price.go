package tibber

import (
	"fmt"
	"log"
)

// PriceRecord is one hourly price point.
type PriceRecord struct {
	Total    float64 `json:"total"`
	StartsAt string  `json:"startsAt"`
	Level    string  `json:"level"`
}

const priceTodayQuery = `
{
  viewer {
    homes {
      currentSubscription{
        priceInfo{
          today {
            total
            startsAt
            level
          }
          tomorrow {
            total
            startsAt
            level
          }
        }
      }
    }
  }
}
`

const priceRangeQuery = `
{
  viewer {
    homes {
      currentSubscription {
        priceInfo {
          range(first: 100, resolution: HOURLY, after: "%s") {
            pageInfo {
              endCursor
              hasNextPage
              count
            }
            nodes {
              total
              startsAt
              level
            }
          }
        }
      }
    }
  }
}
`

// FetchPriceInfoToday returns today's and tomorrow's price records for
// the first home on the account.
func (c *Client) FetchPriceInfoToday() ([]PriceRecord, error) {
	var data struct {
		Viewer struct {
			Homes []struct {
				CurrentSubscription struct {
					PriceInfo struct {
						Today    []PriceRecord `json:"today"`
						Tomorrow []PriceRecord `json:"tomorrow"`
					} `json:"priceInfo"`
				} `json:"currentSubscription"`
			} `json:"homes"`
		} `json:"viewer"`
	}
	if err := c.query(priceTodayQuery, &data); err != nil {
		return nil, err
	}
	if len(data.Viewer.Homes) == 0 {
		return nil, fmt.Errorf("no homes on account")
	}
	info := data.Viewer.Homes[0].CurrentSubscription.PriceInfo
	return append(info.Today, info.Tomorrow...), nil
}

// FetchAllPriceInfo pages through the hourly price history starting at
// the given base64 cursor until the last page.
func (c *Client) FetchAllPriceInfo(afterCursor string) ([]PriceRecord, error) {
	var all []PriceRecord
	for {
		var data struct {
			Viewer struct {
				Homes []struct {
					CurrentSubscription struct {
						PriceInfo struct {
							Range struct {
								PageInfo pageInfo      `json:"pageInfo"`
								Nodes    []PriceRecord `json:"nodes"`
							} `json:"range"`
						} `json:"priceInfo"`
					} `json:"currentSubscription"`
				} `json:"homes"`
			} `json:"viewer"`
		}
		if err := c.query(fmt.Sprintf(priceRangeQuery, afterCursor), &data); err != nil {
			// Partial pages already fetched are still usable.
			log.Printf("Failed to fetch price page: %v", err)
			return all, err
		}
		if len(data.Viewer.Homes) == 0 {
			return all, fmt.Errorf("no homes on account")
		}
		page := data.Viewer.Homes[0].CurrentSubscription.PriceInfo.Range
		all = append(all, page.Nodes...)
		if !page.PageInfo.HasNextPage {
			return all, nil
		}
		afterCursor = page.PageInfo.EndCursor
	}
}
