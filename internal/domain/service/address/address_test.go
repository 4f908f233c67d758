package address_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tranquiltaiwan/internal/domain/service/address"
)

func TestNormalize(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "full-width digits and postal code",
			raw:  "１０６台北市大安區忠孝東路４段２號５樓",
			want: "台北市大安區忠孝東路四段2號",
		},
		{
			name: "city shorthand and spaces",
			raw:  " 北市 信義區市府路45號 ",
			want: "台北市信義區市府路45號",
		},
		{
			name: "traditional 臺 and basement floor",
			raw:  "臺中市西屯區臺灣大道三段99號B1",
			want: "台中市西屯區台灣大道三段99號",
		},
		{
			name: "five digit postal code",
			raw:  "10048台北市中正區重慶南路一段122號",
			want: "台北市中正區重慶南路一段122號",
		},
		{
			name: "sub-number suffix",
			raw:  "新竹市東區光復路2段101號之3",
			want: "新竹市東區光復路二段101號",
		},
		{
			name: "floor with sub-number",
			raw:  "高雄市苓雅區四維三路2號5樓之2",
			want: "高雄市苓雅區四維三路2號",
		},
		{
			name: "latin floor suffix",
			raw:  "台南市東區大學路1號12F",
			want: "台南市東區大學路1號",
		},
		{
			name: "renamed county",
			raw:  "台北縣板橋區文化路一段188號",
			want: "新北市板橋區文化路一段188號",
		},
		{
			name: "official name untouched by alias",
			raw:  "新北市淡水區中正路1號",
			want: "新北市淡水區中正路1號",
		},
		{
			name: "hyphenated house number kept",
			raw:  "宜蘭縣羅東鎮中正路137-1號",
			want: "宜蘭縣羅東鎮中正路137-1號",
		},
		{
			name: "empty input",
			raw:  "   ",
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			rq.Equal(tc.want, address.Normalize(tc.raw))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	rq := require.New(t)

	raw := "１１６台北市文山區羅斯福路６段３９３號４樓之１"

	first := address.Normalize(raw)
	rq.Equal(first, address.Normalize(raw))
	rq.Equal(first, address.Normalize(first))
}
