package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonYears(t *testing.T) {
	tests := []struct {
		name    string
		sets    [][]int
		want    []int
		wantErr error
	}{
		{
			name: "stated inputs",
			sets: [][]int{
				{2014, 2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022, 2023},
				{2014, 2015, 2016, 2017, 2018, 2019, 2021, 2022, 2023},
				{2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022, 2023},
				{2010, 2011, 2012, 2013, 2014, 2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022, 2023, 2024, 2025},
				{2010, 2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022, 2023, 2025},
			},
			want: []int{2015, 2016, 2017, 2018, 2019, 2021, 2022, 2023},
		},
		{
			name: "unsorted with duplicates",
			sets: [][]int{{2019, 2017, 2017, 2018}, {2018, 2017}},
			want: []int{2017, 2018},
		},
		{
			name:    "disjoint",
			sets:    [][]int{{2015, 2016}, {2017}},
			wantErr: ErrNoCommonYears,
		},
		{
			name:    "no sets",
			wantErr: ErrNoCommonYears,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CommonYears(tt.sets...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChooseWindow(t *testing.T) {
	tests := []struct {
		name      string
		common    []int
		length    int
		wantStart int
		wantEnd   int
		wantErr   error
	}{
		{
			name:      "gap at 2020 selects earlier run",
			common:    []int{2015, 2016, 2017, 2018, 2019, 2021, 2022, 2023},
			length:    5,
			wantStart: 2015,
			wantEnd:   2019,
		},
		{
			name:      "later run long enough wins",
			common:    []int{2010, 2011, 2012, 2013, 2014, 2016, 2017, 2018, 2019, 2020},
			length:    5,
			wantStart: 2016,
			wantEnd:   2020,
		},
		{
			name:      "long run keeps most recent years",
			common:    []int{2010, 2011, 2012, 2013, 2014, 2015, 2016, 2017},
			length:    5,
			wantStart: 2013,
			wantEnd:   2017,
		},
		{
			name:      "shorter window fits after gap",
			common:    []int{2015, 2016, 2017, 2018, 2019, 2021, 2022, 2023},
			length:    3,
			wantStart: 2021,
			wantEnd:   2023,
		},
		{
			name:      "single year",
			common:    []int{2015, 2017},
			length:    1,
			wantStart: 2017,
			wantEnd:   2017,
		},
		{
			name:    "no run long enough",
			common:  []int{2015, 2016, 2018, 2019, 2021},
			length:  5,
			wantErr: ErrNoContiguousWindow,
		},
		{
			name:    "empty",
			length:  5,
			wantErr: ErrNoCommonYears,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ChooseWindow(tt.common, tt.length)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestChooseWindow_InvalidLength(t *testing.T) {
	_, _, err := ChooseWindow([]int{2015}, 0)
	assert.Error(t, err)
}
