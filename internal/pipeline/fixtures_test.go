package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go-elhub-stats/internal/config"
)

// mplog rows: a trailing blank after usage_date, a null count (Feb-21),
// a process without a dimension row (brs 9) and an unparsable date.
const mplogCSV = `usage_date,brs,state,count
Jan-21 ,1,1,5
Mar-21 ,1,1,2
Jan-22 ,2,1,4
Jan-22 ,3,1,7
Jan-21 ,1,2,9
Feb-21 ,1,1,
Feb-21 ,9,1,3
Foo-21 ,1,1,1
`

const dimBRSCSV = `id,process_code,group
1,BRS-NO-101,Leverandorskifte
2,BRS-NO-102,Leverandorskifte
3,BRS-NO-301,Legacy
`

const dimStateCSV = `id,status_kode
1,Completed
2,Rejected
`

// m2 starts at 23:30 UTC on Jan 31, which is February in Oslo.
// m4 has a postal code without a mapping row.
const solarCSV = `id,postal_code,mtr_pt_installed_capacity,valid_from,valid_to,mtr_grid_area_id
m1,0150,10.5,2021-01-15T10:00:00Z,,G1
m2,0150,5,2021-01-31T23:30:00Z,2021-03-10T12:00:00Z,G2
m3,5003,,2021-02-05T08:00:00Z,,G1
m4,9999,3,2021-02-06T08:00:00Z,,G1
`

const postalCSV = `Postnummer;Poststed;Latitude;Longitude
0150;OSLO;59.91;10.75
5003;BERGEN;(blank);(blank)
`

const gridCSV = `udc_id,name
G1,NO1
G2,NO5
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig writes every fixture into a temp dir and points a config at them.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Port:         8080,
		OutputDir:    filepath.Join(dir, "output"),
		Timezone:     "Europe/Oslo",
		CountDropped: true,
		Market: config.MarketConfig{
			FactPath:       writeFile(t, dir, "mplog.csv", mplogCSV),
			BRSPath:        writeFile(t, dir, "dim_brs.csv", dimBRSCSV),
			StatePath:      writeFile(t, dir, "dim_mpstate.csv", dimStateCSV),
			Delimiter:      ",",
			ExcludedGroups: []string{"Legacy"},
			DefaultStatus:  "Completed",
		},
		Installation: config.InstallationConfig{
			FactPath:        writeFile(t, dir, "solar.csv", solarCSV),
			PostalPath:      writeFile(t, dir, "postal.csv", postalCSV),
			GridPath:        writeFile(t, dir, "dim_mga.csv", gridCSV),
			Delimiter:       ",",
			PostalDelimiter: ";",
			CapacityDivisor: 100,
		},
	}
}
