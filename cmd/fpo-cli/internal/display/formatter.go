package display

import (
	"fmt"
	"strings"

	"github.com/promptpool/fpo/pkg/fpo"
)

const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
)

// FormatStatus renders the registry projection for the terminal. The champion
// row is marked and colored.
func FormatStatus(status *fpo.Status, registryPath string) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("%s%sPrompt Registry%s\n", ColorBold, ColorBlue, ColorReset))
	output.WriteString(strings.Repeat("=", 50) + "\n")
	output.WriteString(fmt.Sprintf("%sRegistry:%s %s\n", ColorCyan, ColorReset, registryPath))
	output.WriteString(fmt.Sprintf("%sChampion:%s %s\n", ColorCyan, ColorReset, status.GlobalPrompt))
	output.WriteString(fmt.Sprintf("%sPopulation:%s %d | %sMax generation:%s %d\n",
		ColorCyan, ColorReset, status.PopulationSize,
		ColorCyan, ColorReset, status.MaxGeneration))
	if len(status.Domains) > 0 {
		output.WriteString(fmt.Sprintf("%sDomains:%s %s\n", ColorCyan, ColorReset, strings.Join(status.Domains, ", ")))
	}
	output.WriteString("\n")

	for _, row := range status.Templates {
		marker := "  "
		nameColor := ColorBold
		if row.ID == status.GlobalPrompt {
			marker = "* "
			nameColor = ColorGreen
		}
		output.WriteString(fmt.Sprintf("%s%s%s%s (%s)\n", marker, nameColor, candidateLabel(row), ColorReset, row.ID))
		output.WriteString(fmt.Sprintf("    %sWeight:%s %.4f | %sGeneration:%s %d | %sEvaluations:%s %d",
			ColorCyan, ColorReset, row.Weight,
			ColorCyan, ColorReset, row.Generation,
			ColorCyan, ColorReset, row.Evaluations))
		if row.LastScore != nil {
			output.WriteString(fmt.Sprintf(" | %sLast score:%s %.4f", ColorCyan, ColorReset, *row.LastScore))
		}
		output.WriteString("\n")
		if len(row.Parents) > 0 {
			output.WriteString(fmt.Sprintf("    %sParents:%s %s\n", ColorCyan, ColorReset, strings.Join(row.Parents, ", ")))
		}
	}

	return output.String()
}

func candidateLabel(row fpo.CandidateStatus) string {
	if row.Name != "" {
		return row.Name
	}
	return row.ID
}

// FormatIterationResult renders one committed iteration: per-candidate scores,
// the evolution outcome when one fired, and the champion after the commit.
func FormatIterationResult(result *fpo.IterationResult) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("%s%sIteration %d committed%s\n", ColorBold, ColorGreen, result.Iteration, ColorReset))
	output.WriteString(strings.Repeat("-", 40) + "\n")

	for _, score := range result.PerCandidateScores {
		if score.Aggregate != nil {
			output.WriteString(fmt.Sprintf("  %s: %sscore%s %.4f | %sweight%s %.4f\n",
				score.CandidateID,
				ColorYellow, ColorReset, *score.Aggregate,
				ColorGreen, ColorReset, score.Weight))
		} else {
			output.WriteString(fmt.Sprintf("  %s: %sall cases failed, weight unchanged%s (%.4f)\n",
				score.CandidateID, ColorRed, ColorReset, score.Weight))
		}
	}

	if result.Evolution != nil {
		output.WriteString(fmt.Sprintf("  %sEvolved:%s %s (generation %d)\n",
			ColorPurple, ColorReset,
			strings.Join(result.Evolution.Evolved, ", "), result.Evolution.Generation))
		if len(result.Evolution.Pruned) > 0 {
			output.WriteString(fmt.Sprintf("  %sPruned:%s %s\n",
				ColorPurple, ColorReset, strings.Join(result.Evolution.Pruned, ", ")))
		}
	}

	output.WriteString(fmt.Sprintf("  %sChampion:%s %s\n\n", ColorCyan, ColorReset, result.GlobalPrompt))

	return output.String()
}
