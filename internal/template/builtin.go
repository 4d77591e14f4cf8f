package template

const defaultFrench = `# Titre de l'ADR

* **Statut** : [Brouillon/En attente/Accepte/Obsolete]
* **Décideurs** :  [Listes des personnes ayant construit et/ou validé l'ADR]
* **Date de la décision** :  JJ/MM/AAAA
* **Catégories** : [Liste des catégories séparées par des ;]

## Contexte et Problématique

*Une description concise du contexte et de la problèmatique à résoudre, en quelques lignes.*

## Décision Prise

*La solution retenue.*

## Avantages et impacts positifs

* *Avantage 1*
* *Avantage 2*

## Inconvénients et impacts négatifs

* *Inconvénient 1*
* *Inconvénient 2*

## Autres options envisagées

* Cette partie est **optionnelle**, dépendante du contexte. *

## Liens Utiles

* Analyse technique : ...
* OneNote de dossier : ...
* Références Web : ...
`

const defaultEnglish = `# Title of the ADR

* **Status** : [WorkInProgress/Pending/Accepted/Deprecated]
* **Decision Makers** :  [List of persons who have built and/or validated this ADR]
* **Decision Date** :  DD/MM/YYYY
* **Categories** : [List of categories separated by ;]

## Background and Issues

*A concise description of the context and problem to be solved, in a few lines.*

## Decision

*The chosen solution.*

## Advantages and Positive Impacts

* *Advantage 1*
* *Advantage 2*

## Disadvantages and Negative Impacts

* *Disadvantage 1*
* *Disadvantage 2*

## Other Options

* This is an **optional** part, dependent on context. *

## Useful Links

* Link 1 : ...
* Link 2 : ...
`

const madrEnglish = `# Short title of solved problem and solution

* **Status** : [proposed/rejected/accepted/deprecated/superseded]
* **Deciders** : [list everyone involved in the decision]
* **Date** : YYYY-MM-DD

## Context and Problem Statement

Describe the context and problem statement in two or three sentences.

## Decision Drivers

* driver 1
* driver 2

## Considered Options

* option 1
* option 2
* option 3

## Decision Outcome

Chosen option: "option 1", because it is the only option that meets the key decision driver.

### Consequences

* Good, because ...
* Bad, because ...

## Pros and Cons of the Options

### option 1

* Good, because ...
* Bad, because ...

### option 2

* Good, because ...
* Bad, because ...

## More Information

Links to related decisions and resources.
`

const madrFrench = `# Titre court du problème résolu et de la solution

* **Statut** : [proposé/rejeté/accepté/obsolète/remplacé]
* **Décideurs** : [liste des personnes impliquées dans la décision]
* **Date** : AAAA-MM-JJ

## Contexte et énoncé du problème

Décrire le contexte et le problème en deux ou trois phrases.

## Facteurs de décision

* facteur 1
* facteur 2

## Options envisagées

* option 1
* option 2
* option 3

## Décision

Option retenue : "option 1", car c'est la seule qui satisfait le facteur de décision principal.

### Conséquences

* Positif, car ...
* Négatif, car ...

## Avantages et inconvénients des options

### option 1

* Positif, car ...
* Négatif, car ...

### option 2

* Positif, car ...
* Négatif, car ...

## Informations complémentaires

Liens vers les décisions et ressources associées.
`
