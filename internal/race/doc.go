// Package race holds the tournament domain: horses, races and results, plus
// the three pure building blocks the game engine composes.
//
// # Building a tournament
//
//	rng := randutil.New(42)
//	roster := race.GenerateRoster(rng)
//	program := race.BuildProgram(roster, rng)
//	ordering := race.Simulate(program[0], rng)
//
// GenerateRoster produces the fixed 20-horse population, BuildProgram samples
// ten runners per round for the six fixed distances, and Simulate computes a
// finish time for every runner and returns them fastest first.
//
// # Randomness
//
// Every function takes a randutil.Source. Production code passes an unseeded
// generator; tests pass randutil.New(seed) or a scripted source to make
// structural assertions without depending on exact values.
package race
