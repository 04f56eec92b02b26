package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiscoveryHTML = `<html><body>
<ul class="newlyPublished">
  <li><a href="/uksi/2024/50">The Example Regulations 2024</a></li>
  <li><a href="/uksi/2024/50/contents">Table of contents</a></li>
  <li><a href="/ukpga/2024/3">The Example Act 2024</a></li>
  <li><a href="/uksi/2024/50">The Example Regulations 2024</a></li>
</ul>
</body></html>`

func TestParseDiscoveryListDeduplicatesAndSkipsSubPages(t *testing.T) {
	laws, err := ParseDiscoveryList([]byte(sampleDiscoveryHTML), nil)
	require.NoError(t, err)
	require.Len(t, laws, 2)

	assert.Equal(t, "UK_uksi_2024_50", laws[0].Identity.Name())
	assert.Equal(t, "The Example Regulations 2024", laws[0].TitleEn)
	assert.Equal(t, "UK_ukpga_2024_3", laws[1].Identity.Name())
}

func TestDiscoveryPathFormatsDateAndType(t *testing.T) {
	date := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "/new/2024/03/05", DiscoveryPath(date, ""))
	assert.Equal(t, "/new/2024/03/05?type=uksi", DiscoveryPath(date, "uksi"))
}
