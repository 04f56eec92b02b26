package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleChangesHTML = `<html><body>
<table class="table-borders">
  <tbody>
    <tr>
      <td><a href="/uksi/2016/1154">The Health and Safety (Miscellaneous) Regulations 2016</a></td>
      <td>reg. 3</td>
      <td>inserted</td>
      <td>01/01/2017</td>
    </tr>
    <tr>
      <td><a href="/ukpga/1974/37">Health and Safety at Work etc. Act 1974</a></td>
      <td>whole Act</td>
      <td>revoked</td>
      <td></td>
    </tr>
  </tbody>
</table>
</body></html>`

func TestParseAmendingTableParsesRows(t *testing.T) {
	rows, err := ParseAmendingTable([]byte(sampleChangesHTML), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "UK_uksi_2016_1154", rows[0].Name)
	assert.Equal(t, "inserted", rows[0].Affect)
	assert.Equal(t, "UK_ukpga_1974_37", rows[1].Name)
	assert.Equal(t, "revoked", rows[1].Affect)
}

func TestBuildOutgoingRoutesRevocations(t *testing.T) {
	rows, err := ParseAmendingTable([]byte(sampleChangesHTML), nil)
	require.NoError(t, err)

	fields := BuildOutgoing(rows)
	assert.Equal(t, []string{"UK_uksi_2016_1154"}, fields.GetStringSlice("amending"))
	assert.Equal(t, []string{"UK_ukpga_1974_37"}, fields.GetStringSlice("rescinding"))
}

func TestBuildIncomingDerivesWholeLawRevocationFromAffected(t *testing.T) {
	rows, err := ParseAmendingTable([]byte(sampleChangesHTML), nil)
	require.NoError(t, err)

	fields := BuildIncoming(rows)
	assert.Equal(t, "✗ Revoked", fields.GetString("live_from_changes"))
}
