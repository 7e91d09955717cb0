package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/five82/tickerdeck/internal/api"
)

func TestCompanyColumnsSkipsIdentityKeys(t *testing.T) {
	rows := []api.Company{
		{"code": "600036", "name": "招商银行", "industry": "银行", "province": "广东", "listed": "2002-04-09"},
		{"ts_code": "600000.SH", "name": "浦发银行", "website": "spdb.com.cn", "province": "上海"},
	}
	assert.Equal(t, []string{"listed", "province", "website"}, companyColumns(rows))
	assert.Empty(t, companyColumns(nil))
}

func TestCompanyFilter(t *testing.T) {
	f := &companyFilter{}
	f.set("bank", "银行")
	q, industry := f.get()
	assert.Equal(t, "bank", q)
	assert.Equal(t, "银行", industry)
}
